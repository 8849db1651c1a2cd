package internal

import "expvar"

var (
	requestsTotal  = expvar.NewMap("pushrelay_requests_total")
	eventsIgnored  = expvar.NewMap("pushrelay_events_ignored_total")
	fetchErrors    = expvar.NewMap("pushrelay_fetch_errors_total")
	dispatchErrors = expvar.NewMap("pushrelay_dispatch_errors_total")
)

func IncRequest(route string) {
	requestsTotal.Add(route, 1)
}

func IncIgnoredEvent(reason string) {
	eventsIgnored.Add(reason, 1)
}

func IncFetchError(kind string) {
	fetchErrors.Add(kind, 1)
}

func IncDispatchError(sink string) {
	dispatchErrors.Add(sink, 1)
}
