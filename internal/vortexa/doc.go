// Package vortexa queries the Vortexa cargo-movements search endpoint.
//
// Client.Search posts one filtered query, follows the next_request cursor
// until the result set is exhausted, and projects every record onto the
// requested dotted column paths. Requests are paced by a token bucket and
// retried on 429 and 5xx responses, honouring Retry-After. A 401 or 403 is
// reported as apperrors.ErrUnauthorized.
//
// Column paths address nested fields the way the service names them:
// "vessels.1.vessel_class" indexes a list, while
// "events.cargo_port_load_event.0.end_timestamp" first selects the events
// whose event_type is cargo_port_load_event. A path that does not resolve
// yields nil.
//
// Example usage:
//
//	client, err := vortexa.NewClient(vortexa.Config{APIKey: key}, logger)
//	if err != nil {
//	    return err
//	}
//	table, err := client.Search(ctx, vortexa.Query{
//	    TimeMin:  from,
//	    TimeMax:  to,
//	    Activity: vortexa.ActivityAny,
//	    Unit:     vortexa.UnitBarrels,
//	    Columns:  vortexa.DefaultColumns,
//	})
package vortexa
