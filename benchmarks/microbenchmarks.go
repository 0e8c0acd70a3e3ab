package benchmarks

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// benchmark targets one part of the timing model.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		memoryStrided(),
		functionCalls(),
		branchTaken(),
		loopCountdown(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// memory traffic and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopCountdown(),
		memorySequential(),
		branchTaken(),
	}
}

func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for range 4 {
		for rd := uint8(regA0); rd < regA0+5; rd++ {
			instrs = append(instrs, EncodeADDI(rd, rd, 1))
		}
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADDIs spread over 5 registers - measures ALU throughput",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 4,
	}
}

func dependencyChain() Benchmark {
	instrs := make([]uint32, 0, 21)
	for range 20 {
		instrs = append(instrs, EncodeADDI(regA0, regA0, 1))
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (a0 = a0 + 1)",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 20,
	}
}

// dataPrologue points t0 at a buffer 1 KiB past the program and sets a0.
func dataPrologue(value int32) []uint32 {
	return []uint32{
		EncodeAUIPC(regT0, 0),
		EncodeADDI(regT0, regT0, 1024),
		EncodeADDI(regA0, 0, value),
	}
}

func memorySequential() Benchmark {
	instrs := dataPrologue(42)
	for i := range int32(10) {
		instrs = append(instrs, EncodeSD(regA0, regT0, 8*i), EncodeLD(regA0, regT0, 8*i))
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 store/load pairs to sequential doublewords - mostly one cache line",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 42,
	}
}

func memoryStrided() Benchmark {
	instrs := dataPrologue(42)
	for i := range int32(8) {
		instrs = append(instrs, EncodeSD(regA0, regT0, 64*i))
	}
	for i := range int32(8) {
		instrs = append(instrs, EncodeLD(regA0, regT0, 64*i))
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "memory_strided",
		Description:  "8 stores then 8 loads one cache line apart - one miss per line",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 42,
	}
}

func functionCalls() Benchmark {
	// The callee sits at word 7.
	instrs := []uint32{EncodeADDI(regA0, 0, 0)}
	for i := int32(1); i <= 5; i++ {
		instrs = append(instrs, EncodeJAL(regRA, (7-i)*4))
	}
	instrs = append(instrs,
		EncodeECALL(),
		EncodeADDI(regA0, regA0, 1),
		EncodeJALR(0, regRA, 0),
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 JAL/JALR call and return pairs - measures call overhead",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 5,
	}
}

func branchTaken() Benchmark {
	instrs := []uint32{EncodeADDI(regA0, 0, 0)}
	for range 5 {
		instrs = append(instrs,
			EncodeBEQ(0, 0, 8),
			EncodeADDI(regA1, regA1, 99),
			EncodeADDI(regA0, regA0, 1),
		)
	}
	instrs = append(instrs, EncodeECALL())

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 always-taken forward branches - measures redirect penalty",
		Program:      BuildProgram(instrs...),
		ExpectedExit: 5,
	}
}

func loopCountdown() Benchmark {
	return Benchmark{
		Name:        "loop_countdown",
		Description: "10-iteration counted loop closed by BNE",
		Program: BuildProgram(
			EncodeADDI(regA0, 0, 0),
			EncodeADDI(regT0, 0, 10),
			EncodeADDI(regA0, regA0, 1),
			EncodeADDI(regT0, regT0, -1),
			EncodeBNE(regT0, 0, -8),
			EncodeECALL(),
		),
		ExpectedExit: 10,
	}
}
