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
    `context`

    `github.com/apache/thrift/lib/go/thrift`

    `github.com/cloudwego/brlower/internal/ir`
)

type _Encoder struct {
    p   *ir.Program
    w   thrift.TProtocol
    err error
}

// Encode serializes a program.
func Encode(p *ir.Program) ([]byte, error) {
    mm := thrift.NewTMemoryBuffer()
    enc := &_Encoder { p: p, w: thrift.NewTBinaryProtocolTransport(mm) }

    /* write the program */
    enc.program()
    if enc.err != nil {
        return nil, enc.err
    }

    /* flush the protocol buffer */
    if err := enc.w.Flush(context.Background()); err != nil {
        return nil, err
    } else {
        return mm.Bytes(), nil
    }
}

func (self *_Encoder) check(err error) {
    if self.err == nil {
        self.err = err
    }
}

func (self *_Encoder) begin(name string, tt thrift.TType, id int16) {
    self.check(self.w.WriteFieldBegin(name, tt, id))
}

func (self *_Encoder) end() {
    self.check(self.w.WriteFieldEnd())
}

func (self *_Encoder) stop() {
    self.check(self.w.WriteFieldStop())
    self.check(self.w.WriteStructEnd())
}

func (self *_Encoder) list(name string, id int16, et thrift.TType, n int, fn func(i int)) {
    self.begin(name, thrift.LIST, id)
    self.check(self.w.WriteListBegin(et, n))
    for i := 0; i < n; i++ { fn(i) }
    self.check(self.w.WriteListEnd())
    self.end()
}

func (self *_Encoder) program() {
    p := self.p
    self.check(self.w.WriteStructBegin("Program"))

    /* target */
    self.begin("gfx", thrift.STRING, _F_program_gfx)
    self.check(self.w.WriteString(p.Gfx.String()))
    self.end()
    self.begin("lane_mask", thrift.BYTE, _F_program_lane_mask)
    self.check(self.w.WriteByte(int8(p.LaneMask)))
    self.end()

    /* blocks */
    self.list("blocks", _F_program_blocks, thrift.STRUCT, p.NumBlocks(), func(i int) {
        self.block(p.Block(i))
    })

    /* end of program */
    self.stop()
}

func (self *_Encoder) block(bb *ir.Block) {
    self.check(self.w.WriteStructBegin("Block"))
    self.begin("kind", thrift.I32, _F_block_kind)
    self.check(self.w.WriteI32(int32(bb.Kind)))
    self.end()

    /* instructions */
    self.list("ins", _F_block_ins, thrift.STRUCT, len(bb.Ins), func(i int) {
        self.instr(self.p.Instr(bb.Ins[i]))
    })

    /* successors of both views */
    self.succs("linear", _F_block_linear, bb.Succs(ir.Linear))
    self.succs("logical", _F_block_logical, bb.Succs(ir.Logical))
    self.stop()
}

func (self *_Encoder) succs(name string, id int16, succs []int) {
    self.list(name, id, thrift.I32, len(succs), func(i int) {
        self.check(self.w.WriteI32(int32(succs[i])))
    })
}

func (self *_Encoder) instr(ins *ir.Instr) {
    self.check(self.w.WriteStructBegin("Instr"))
    self.begin("op", thrift.STRING, _F_instr_op)
    self.check(self.w.WriteString(ins.Op.String()))
    self.end()

    /* definitions */
    self.list("defs", _F_instr_defs, thrift.STRUCT, len(ins.Defs), func(i int) {
        self.check(self.w.WriteStructBegin("Def"))
        self.begin("reg", thrift.I16, _F_def_reg)
        self.check(self.w.WriteI16(int16(ins.Defs[i].Reg)))
        self.end()
        self.begin("rc", thrift.BYTE, _F_def_rc)
        self.check(self.w.WriteByte(int8(ins.Defs[i].Rc)))
        self.end()
        self.stop()
    })

    /* operands */
    self.list("ops", _F_instr_ops, thrift.STRUCT, len(ins.Ops), func(i int) {
        self.operand(ins.Ops[i])
    })

    /* immediate */
    self.begin("imm", thrift.I32, _F_instr_imm)
    self.check(self.w.WriteI32(int32(ins.Imm)))
    self.end()

    /* pseudo branch payload */
    if ins.Br != nil {
        self.begin("target", thrift.I32, _F_instr_target)
        self.check(self.w.WriteI32(int32(ins.Br.Target)))
        self.end()
        self.begin("never_taken", thrift.BOOL, _F_instr_never_taken)
        self.check(self.w.WriteBool(ins.Br.NeverTaken))
        self.end()
        self.begin("rarely_taken", thrift.BOOL, _F_instr_rarely)
        self.check(self.w.WriteBool(ins.Br.RarelyTaken))
        self.end()
    }

    /* end of instruction */
    self.stop()
}

func (self *_Encoder) operand(v ir.Operand) {
    self.check(self.w.WriteStructBegin("Operand"))
    if v.Const {
        self.begin("konst", thrift.BOOL, _F_operand_konst)
        self.check(self.w.WriteBool(true))
        self.end()
        self.begin("val", thrift.I32, _F_operand_val)
        self.check(self.w.WriteI32(int32(v.Val)))
        self.end()
    } else {
        self.begin("reg", thrift.I16, _F_operand_reg)
        self.check(self.w.WriteI16(int16(v.Reg)))
        self.end()
        self.begin("rc", thrift.BYTE, _F_operand_rc)
        self.check(self.w.WriteByte(int8(v.Rc)))
        self.end()
    }
    self.stop()
}
