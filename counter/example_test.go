package counter_test

import (
	"fmt"

	"github.com/katalvlaran/msmcount/counter"
)

func ExampleCount() {
	m, err := counter.Count([]int{0, 1, 1, 2}, 3)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, e := range m.Sort().Entries() {
		fmt.Printf("(%d,%d)=%g\n", e.Row, e.Col, e.Value)
	}

	// Output:
	// (0,1)=1
	// (1,1)=1
	// (1,2)=1
}
