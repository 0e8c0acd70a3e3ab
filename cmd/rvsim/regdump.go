package main

import (
	"fmt"
	"io"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// dumpRegisters prints pc and the 32 integer registers by ABI name, four
// per row.
func dumpRegisters(w io.Writer, snap emu.RegisterSnapshot) {
	digits := 16
	if snap.XLEN == insts.XLEN32 {
		digits = 8
	}

	fmt.Fprintf(w, "%-4s = 0x%0*x\n", "pc", digits, snap.PC)
	for i, name := range abiNames {
		fmt.Fprintf(w, "%-4s = 0x%0*x", name, digits, snap.X[i])
		if i%4 == 3 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, "  ")
		}
	}
}
