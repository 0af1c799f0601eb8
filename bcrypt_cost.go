//go:build !race

package auth

// defaultHashCost is the bcrypt work factor for stored credentials
const defaultHashCost = 14

func passwordHashCost() int {
	return defaultHashCost
}
