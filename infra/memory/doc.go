// Package memory provides typed object pools for short-lived hot-path
// values such as market orders, which never rest in a book and can be
// recycled as soon as their fill walk returns.
package memory
