//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// the race detector slows bcrypt several fold, so race builds hash at the
// library default instead of defaultHashCost
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
