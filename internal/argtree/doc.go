// Package argtree builds type-shape trees for program values.
//
// A Tree mirrors the type of one SSA value: a pointer node has one child for
// its pointee and a struct node has one child per field. Every node holds the
// SSA values whose result denotes the memory that node stands for, derived
// top-down from the root through loads and static offset computations.
// ArgAccessTree condenses a built tree to one access flag per node.
package argtree
