// Package conv provides checked integer conversions and page arithmetic.
//
// Every function reports overflow as an error instead of wrapping, so sizes
// supplied by callers can be turned into page counts and byte lengths safely.
package conv
