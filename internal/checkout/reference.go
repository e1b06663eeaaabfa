package checkout

import (
	"fmt"
	"math/rand/v2"
)

// NewOrderRef returns "<prefix>-" followed by a random number in [10000, 99999].
func NewOrderRef(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, 10000+rand.IntN(90000))
}
