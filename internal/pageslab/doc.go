// Package pageslab implements page-granular bookkeeping for a single slab.
//
// A slab is a fixed number of equally sized pages. Two flat bitmaps track it:
//
//	active  ████░░░░██████░░░░░░░░   pages currently handed out
//	touched ██████░░██████████░░░░   pages handed out at some point since the last purge
//	dirty   ░░░░██░░░░░░░░████░░░░   touched AND NOT active: reclaimable
//
// Reserve is first fit over free runs and keeps LongestFreeRange exact, so an
// allocator can skip slabs that cannot satisfy a request without scanning
// their bitmaps. Purge walks dirty runs and marks them untouched once the
// caller has released their memory.
//
// A Slab is not safe for concurrent use.
package pageslab
