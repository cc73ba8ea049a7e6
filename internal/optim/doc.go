// Package optim sweeps parameter grids and keeps the best scoring point.
package optim
