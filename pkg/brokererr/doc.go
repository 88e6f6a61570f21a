// Package brokererr centralizes hostbroker's error taxonomy so that every
// layer — storage, provider, lifecycle, boundary — raises and classifies
// errors the same way, and so the boundary layer can map any error to a
// stable ErrorType string without layer-specific knowledge.
package brokererr
