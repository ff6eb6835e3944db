// Package async provides a small generic Future type.
//
// Async starts a goroutine and hands back its Future. Promise returns an
// unresolved Future plus a resolve function, which lets a worker pool complete
// futures for jobs it runs on its own goroutines.
package async
