package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var mu sync.Mutex
var seededRand *rand.Rand

func init() {
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GenerateOrderNo produces a human-readable order number that is unique
// enough for a single deployment. Collisions are caught by the unique
// index on orders.order_no.
func GenerateOrderNo(clientID uint) string {
	mu.Lock()
	defer mu.Unlock()

	nowNano := time.Now().UnixNano()
	nanoPart := nowNano % 1000000

	randPart := seededRand.Intn(900) + 100

	return fmt.Sprintf("OL-%06d%03d%d", nanoPart, randPart, clientID)
}
