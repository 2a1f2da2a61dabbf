// Package irq provides the critical section used around every timer list
// mutation.
//
// On TinyGo targets a critical section masks interrupts. On hosted builds,
// where the "interrupt" is a driver goroutine, each Lock is a mutex. Code
// using a Lock must never re-enter the same Lock: callbacks are always
// invoked with the lock released.
package irq
