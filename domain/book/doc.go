// Package book implements the single-instrument limit order book and
// its matching engine. It maintains two red-black trees for the bid and
// ask sides, FIFO queues inside each price level, and a flat id index
// for O(1) cancellation lookup.
//
// The package operates as a single-writer system: one submission or
// cancellation runs to completion before the next begins. Callers that
// need concurrency serialize through the service layer.
package book
