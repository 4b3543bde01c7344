/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
    `github.com/apache/thrift/lib/go/thrift`

    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

type _Block struct {
    kind    ir.BlockKind
    ins     []ir.Instr
    linear  []int
    logical []int
}

type _Program struct {
    gfx    string
    lm     isa.RegClass
    blocks []_Block
}

type _Decoder struct {
    r thrift.TProtocol
}

// Decode deserializes a program. The result is structurally sound, in the
// sense that edges are in range and symmetric, but is not otherwise checked.
func Decode(buf []byte) (*ir.Program, error) {
    var err error
    var ret _Program

    /* load the buffer */
    mm := thrift.NewTMemoryBuffer()
    if _, err = mm.Write(buf); err != nil {
        return nil, err
    }

    /* parse the program */
    dec := _Decoder { r: thrift.NewTBinaryProtocolTransport(mm) }
    if err = dec.program(&ret); err != nil {
        return nil, err
    }

    /* build the program */
    return ret.build()
}

// fields reads a struct, calling fn for every field. Fields fn does not
// recognize are skipped.
func (self *_Decoder) fields(fn func(id int16, tt thrift.TType) (bool, error)) error {
    if _, err := self.r.ReadStructBegin(); err != nil {
        return err
    }

    /* read every field */
    for {
        _, tt, id, err := self.r.ReadFieldBegin()
        if err != nil {
            return err
        }

        /* end of struct */
        if tt == thrift.STOP {
            break
        }

        /* parse the field */
        ok, err := fn(id, tt)
        if err != nil {
            return err
        }

        /* skip unknown fields */
        if !ok {
            if err = self.r.Skip(tt); err != nil {
                return err
            }
        }

        /* end of field */
        if err = self.r.ReadFieldEnd(); err != nil {
            return err
        }
    }

    /* end of struct */
    return self.r.ReadStructEnd()
}

// list reads a list of et, calling fn for every element.
func (self *_Decoder) list(et thrift.TType, fn func() error) error {
    tt, n, err := self.r.ReadListBegin()
    if err != nil {
        return err
    }

    /* element type must match */
    if tt != et {
        return formatError(-1, "expected list<%s>, got list<%s>", et, tt)
    }

    /* read every element */
    for i := 0; i < n; i++ {
        if err = fn(); err != nil {
            return err
        }
    }

    /* end of list */
    return self.r.ReadListEnd()
}

func (self *_Decoder) ints(ret *[]int) error {
    return self.list(thrift.I32, func() error {
        v, err := self.r.ReadI32()
        *ret = append(*ret, int(v))
        return err
    })
}

func (self *_Decoder) program(p *_Program) error {
    return self.fields(func(id int16, tt thrift.TType) (ok bool, err error) {
        var lm int8
        switch {
            case id == _F_program_gfx && tt == thrift.STRING: {
                p.gfx, err = self.r.ReadString()
            }

            /* lane mask register class */
            case id == _F_program_lane_mask && tt == thrift.BYTE: {
                lm, err = self.r.ReadByte()
                p.lm = isa.RegClass(lm)
            }

            /* blocks */
            case id == _F_program_blocks && tt == thrift.LIST: {
                err = self.list(thrift.STRUCT, func() error {
                    p.blocks = append(p.blocks, _Block{})
                    return self.block(&p.blocks[len(p.blocks) - 1])
                })
            }

            /* unknown field */
            default: {
                return false, nil
            }
        }
        return true, err
    })
}

func (self *_Decoder) block(bb *_Block) error {
    return self.fields(func(id int16, tt thrift.TType) (ok bool, err error) {
        var kind int32
        switch {
            case id == _F_block_kind && tt == thrift.I32: {
                kind, err = self.r.ReadI32()
                bb.kind = ir.BlockKind(kind)
            }

            /* instructions */
            case id == _F_block_ins && tt == thrift.LIST: {
                err = self.list(thrift.STRUCT, func() error {
                    bb.ins = append(bb.ins, ir.Instr{})
                    return self.instr(&bb.ins[len(bb.ins) - 1])
                })
            }

            /* successors */
            case id == _F_block_linear  && tt == thrift.LIST : err = self.ints(&bb.linear)
            case id == _F_block_logical && tt == thrift.LIST : err = self.ints(&bb.logical)
            default                                          : return false, nil
        }
        return true, err
    })
}

func (self *_Decoder) instr(ins *ir.Instr) error {
    var op string
    var br ir.Branch
    var tgt bool

    /* parse the fields */
    err := self.fields(func(id int16, tt thrift.TType) (ok bool, err error) {
        var v int32
        switch {
            case id == _F_instr_op && tt == thrift.STRING: {
                op, err = self.r.ReadString()
            }

            /* definitions */
            case id == _F_instr_defs && tt == thrift.LIST: {
                err = self.list(thrift.STRUCT, func() error {
                    ins.Defs = append(ins.Defs, ir.Definition{})
                    return self.def(&ins.Defs[len(ins.Defs) - 1])
                })
            }

            /* operands */
            case id == _F_instr_ops && tt == thrift.LIST: {
                err = self.list(thrift.STRUCT, func() error {
                    ins.Ops = append(ins.Ops, ir.Operand{})
                    return self.operand(&ins.Ops[len(ins.Ops) - 1])
                })
            }

            /* immediate and branch payload */
            case id == _F_instr_imm         && tt == thrift.I32  : v, err = self.r.ReadI32(); ins.Imm = uint32(v)
            case id == _F_instr_target      && tt == thrift.I32  : v, err = self.r.ReadI32(); br.Target, tgt = int(v), true
            case id == _F_instr_never_taken && tt == thrift.BOOL : br.NeverTaken, err = self.r.ReadBool()
            case id == _F_instr_rarely      && tt == thrift.BOOL : br.RarelyTaken, err = self.r.ReadBool()
            default                                              : return false, nil
        }
        return true, err
    })

    /* check for errors */
    if err != nil {
        return err
    }

    /* resolve the opcode */
    var ok bool
    if ins.Op, ok = isa.LookupOpcode(op); !ok {
        return formatError(-1, "unknown opcode %q", op)
    }

    /* pseudo branches must have a target, and nothing else may have one */
    if tgt != ins.IsPseudoBranch() {
        return formatError(-1, "%s: branch target mismatch", op)
    }

    /* attach the payload */
    if tgt {
        ins.Br = &br
    }
    return nil
}

func (self *_Decoder) def(d *ir.Definition) error {
    return self.fields(func(id int16, tt thrift.TType) (ok bool, err error) {
        var reg int16
        var rc int8
        switch {
            case id == _F_def_reg && tt == thrift.I16  : reg, err = self.r.ReadI16(); d.Reg = isa.PhysReg(reg)
            case id == _F_def_rc  && tt == thrift.BYTE : rc, err = self.r.ReadByte(); d.Rc = isa.RegClass(rc)
            default                                    : return false, nil
        }
        return true, err
    })
}

func (self *_Decoder) operand(v *ir.Operand) error {
    return self.fields(func(id int16, tt thrift.TType) (ok bool, err error) {
        var reg int16
        var val int32
        var rc int8
        switch {
            case id == _F_operand_reg   && tt == thrift.I16  : reg, err = self.r.ReadI16(); v.Reg = isa.PhysReg(reg)
            case id == _F_operand_rc    && tt == thrift.BYTE : rc, err = self.r.ReadByte(); v.Rc = isa.RegClass(rc)
            case id == _F_operand_konst && tt == thrift.BOOL : v.Const, err = self.r.ReadBool()
            case id == _F_operand_val   && tt == thrift.I32  : val, err = self.r.ReadI32(); v.Val = uint32(val)
            default                                          : return false, nil
        }
        return true, err
    })
}

func (self *_Program) checkEdges(bb int, succs []int, v ir.View) error {
    if len(succs) > 2 {
        return formatError(bb, "%d %s successors", len(succs), v)
    }
    for i, s := range succs {
        if s < 0 || s >= len(self.blocks) {
            return formatError(bb, "%s successor bb_%d out of range", v, s)
        }
        if i == 1 && succs[0] == s {
            return formatError(bb, "duplicated %s successor bb_%d", v, s)
        }
    }
    return nil
}

func (self *_Program) build() (*ir.Program, error) {
    gfx, err := isa.ParseGfxLevel(self.gfx)
    if err != nil {
        return nil, formatError(-1, "%v", err)
    }

    /* only wave32 and wave64 exist */
    if self.lm != isa.S1 && self.lm != isa.S2 {
        return nil, formatError(-1, "invalid lane mask %s", self.lm)
    }

    /* check all the edges before adding any */
    for i, bb := range self.blocks {
        if err = self.checkEdges(i, bb.linear, ir.Linear); err != nil {
            return nil, err
        }
        if err = self.checkEdges(i, bb.logical, ir.Logical); err != nil {
            return nil, err
        }
    }

    /* create the blocks */
    p := ir.NewProgram(gfx, self.lm)
    for _, bb := range self.blocks {
        id := p.NewBlock(bb.kind)
        for _, ins := range bb.ins {
            p.Append(id, ins)
        }
    }

    /* add the edges, predecessors are ordered by block */
    for i, bb := range self.blocks {
        for _, s := range bb.linear  { p.AddEdge(i, s, ir.Linear) }
        for _, s := range bb.logical { p.AddEdge(i, s, ir.Logical) }
    }
    return p, nil
}
