// Package jobpoll waits for asynchronous provider jobs to reach a terminal
// state. The poller is a bounded loop: query status, sleep, repeat, until the
// job completes, fails, or the attempt budget runs out. It knows nothing about
// any provider's wire format; providers adapt their status endpoints to a
// PollFunc.
package jobpoll
