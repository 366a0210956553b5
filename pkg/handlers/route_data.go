package handlers

// Values :
// A convenience define to allow for easy manipulation of a list
// of strings as a single element. This is mostly used to be able
// to interpret multiple values for a single query parameter in
// an easy way.
type Values []string

// RouteVars :
// Define common information to be passed in the route to contact
// the server. We handle the variable segments of the route and
// some query parameters.
// An object of this type is extracted for each single request
// and passed to the endpoint serving it.
//
// The `Elems` associates the name of each variable segment of
// the route to its value in the request. Typically a request
// on `/planets/p1` served by the `/planets/{planet}` route will
// define `p1` for `planet`.
//
// The `Params` define the query parameters associated to the input
// request. Note that in some case no parameters are provided.
type RouteVars struct {
	Elems  map[string]string
	Params map[string]Values
}

// Elem :
// Returns the value of the variable segment or an empty string
// if the route does not define it.
func (rv RouteVars) Elem(name string) string {
	return rv.Elems[name]
}

// Param :
// Returns the first value of the query parameter or an empty
// string if it is not defined.
func (rv RouteVars) Param(key string) string {
	values, ok := rv.Params[key]
	if !ok || len(values) == 0 {
		return ""
	}

	return values[0]
}
