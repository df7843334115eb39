// Package tsplib reads and writes the TSPLIB text files exchanged with the
// LKH family of solvers.
//
// Problems are always written with EDGE_WEIGHT_TYPE EXPLICIT and
// EDGE_WEIGHT_FORMAT FULL_MATRIX. Real-valued weights are quantized to
// integers by scaling with 10^precision, so a precision of 2 keeps two
// decimal digits:
//
//	g := tsplib.NewGraph(false)
//	g.AddEdge("a", "b", 1.25)
//	basename, err := tsplib.WriteProblem("/tmp/lkh/demo.tsp", &tsplib.Problem{Graph: g}, 2)
//
// The file extension selects the problem type:
//
//	.tsp      TSP      undirected graph
//	.atsp     ATSP     directed graph
//	.m-pdtsp  M-PDTSP  directed graph plus demand, capacity and depot
//
// Tours produced by the solver are read back with ReadTour. Node indices in
// both directions are 1-based positions in the problem's node ordering.
package tsplib
