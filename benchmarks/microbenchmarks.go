package benchmarks

import (
	"github.com/sarchlab/cgrasim/insts"
)

// GetMicrobenchmarks returns the standard calibration set. Each benchmark
// targets one characteristic of the atomic core model.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(20),
		memorySequential(),
		branchLoop(8),
		mixedOperations(),
	}
}

// arithmeticSequential measures retirement throughput with independent ALU
// operations spread over five registers.
func arithmeticSequential() Benchmark {
	program := make([]uint32, 0, 21)
	for i := 0; i < 4; i++ {
		for reg := uint8(1); reg <= 5; reg++ {
			program = append(program,
				insts.EncodeALUImm(insts.OpADDI, reg, reg, 1))
		}
	}
	program = append(program, insts.EncodeHALT())

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDI operations over 5 registers",
		Program:     program,
		CheckReg:    1,
		Expected:    4,
	}
}

// dependencyChain measures serialized ALU execution: every ADDI reads the
// result of the previous one.
func dependencyChain(n int) Benchmark {
	program := make([]uint32, 0, n+1)
	for i := 0; i < n; i++ {
		program = append(program, insts.EncodeALUImm(insts.OpADDI, 1, 1, 1))
	}
	program = append(program, insts.EncodeHALT())

	return Benchmark{
		Name:        "dependency_chain",
		Description: "dependent ADDI chain on a single register",
		Program:     program,
		CheckReg:    1,
		Expected:    uint64(n),
	}
}

// memorySequential measures data-port latency with store/load pairs at
// sequential addresses.
func memorySequential() Benchmark {
	program := []uint32{
		insts.EncodeALUImm(insts.OpADDI, 1, 0, 0x1000), // base
		insts.EncodeALUImm(insts.OpADDI, 2, 0, 42),     // value
	}
	for i := int16(0); i < 10; i++ {
		program = append(program,
			insts.EncodeLoadStore(insts.OpSTD, 2, 1, i*8),
			insts.EncodeLoadStore(insts.OpLDD, 3, 1, i*8),
		)
	}
	program = append(program, insts.EncodeHALT())

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs at sequential addresses",
		Program:     program,
		CheckReg:    3,
		Expected:    42,
	}
}

// branchLoop measures taken-branch behavior with a countdown loop.
func branchLoop(iterations int16) Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "countdown loop with a taken backward branch",
		Program: []uint32{
			insts.EncodeALUImm(insts.OpADDI, 1, 0, iterations),
			insts.EncodeALUImm(insts.OpADDI, 2, 2, 3),  // loop:
			insts.EncodeALUImm(insts.OpADDI, 1, 1, -1), //
			insts.EncodeBranch(insts.OpBNE, 1, 0, -2),  // bne r1, r0, loop
			insts.EncodeHALT(),
		},
		CheckReg: 2,
		Expected: uint64(iterations) * 3,
	}
}

// mixedOperations interleaves ALU work, memory traffic, and control flow.
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "ALU, memory, and branch mix",
		Program: []uint32{
			insts.EncodeALUImm(insts.OpADDI, 1, 0, 0x2000), // base
			insts.EncodeALUImm(insts.OpADDI, 2, 0, 4),      // counter
			insts.EncodeALUImm(insts.OpADDI, 3, 3, 7),      // loop: r3 += 7
			insts.EncodeLoadStore(insts.OpSTW, 3, 1, 0),    // spill r3
			insts.EncodeLoadStore(insts.OpLDW, 4, 1, 0),    // reload into r4
			insts.EncodeALUReg(insts.OpADD, 5, 5, 4),       // accumulate
			insts.EncodeALUImm(insts.OpADDI, 2, 2, -1),     //
			insts.EncodeBranch(insts.OpBNE, 2, 0, -5),      // bne r2, r0, loop
			insts.EncodeHALT(),
		},
		CheckReg: 5,
		Expected: 7 + 14 + 21 + 28,
	}
}
