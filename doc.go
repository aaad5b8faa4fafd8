// Package msmcount counts state-to-state transitions of discretized
// trajectories spread over many processes and sums them into one sparse
// count matrix, the input of Markov state model estimation.
//
// Packages:
//
//	sparse      square CSC count matrix: triplet builder, Dedup, Add, Sort
//	counter     one process's labels → consolidated local count matrix
//	comm        rank/tag communicator contract, mailbox, size reports
//	comm/local  in-process ranks over channels (tests, simulate)
//	comm/wsnet  ranks joined to the coordinator over websockets
//	aggregate   size exchange then master-collects reduction
//	labels      trajectory label sources (text files with stride)
//	synth       deterministic synthetic label sequences
//	store       BadgerDB persistence of reduced matrices
//	config      YAML run configuration with validation
//
// The msmcount command (cmd/msmcount) wires these together: run joins a
// multi-process reduction, simulate runs one in-process, show reads stored
// results back.
package msmcount
