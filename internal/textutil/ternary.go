package textutil

// Ternary returns yes when cond holds, otherwise no.
func Ternary[T any](cond bool, yes, no T) T {
	if cond {
		return yes
	}
	return no
}
