package intercept

// InterceptKey identifies a real-world destination that is redirected into
// an in-process application.
type InterceptKey struct {
	Host string
	Port int
}

type interceptEntry struct {
	factory    AppFactory
	scriptName string
}

// Registry maps destinations to application factories. An [Interceptor]
// consults it on every connection attempt.
//
// Registry performs no locking: the intended usage is single-threaded test
// code. Tests sharing a process must serialize registration and use of the
// same host/port pairs themselves.
type Registry struct {
	intercepts map[InterceptKey]interceptEntry
}

func NewRegistry() *Registry {
	return &Registry{intercepts: make(map[InterceptKey]interceptEntry)}
}

// Register redirects connections to host:port into applications constructed
// by factory. scriptName becomes SCRIPT_NAME in the application's environ
// and is stripped from the front of request paths. Registering an already
// registered destination overwrites it.
func (r *Registry) Register(host string, port int, factory AppFactory, scriptName string) {
	r.intercepts[InterceptKey{Host: host, Port: port}] = interceptEntry{factory: factory, scriptName: scriptName}
}

// Unregister removes the intercept for host:port. Removing a destination
// that was never registered is a no-op.
func (r *Registry) Unregister(host string, port int) {
	delete(r.intercepts, InterceptKey{Host: host, Port: port})
}

// UnregisterAll removes every intercept.
func (r *Registry) UnregisterAll() {
	r.intercepts = make(map[InterceptKey]interceptEntry)
}

// Lookup returns the registered factory and script name for host:port.
func (r *Registry) Lookup(host string, port int) (AppFactory, string, bool) {
	e, ok := r.intercepts[InterceptKey{Host: host, Port: port}]
	if !ok {
		return nil, "", false
	}
	return e.factory, e.scriptName, true
}

// Default is the process-wide registry used by an [Interceptor] that is not
// given an explicit one.
var Default = NewRegistry()

// Register adds an intercept to the Default registry.
func Register(host string, port int, factory AppFactory, scriptName string) {
	Default.Register(host, port, factory, scriptName)
}

// Unregister removes an intercept from the Default registry.
func Unregister(host string, port int) {
	Default.Unregister(host, port)
}

// UnregisterAll clears the Default registry.
func UnregisterAll() {
	Default.UnregisterAll()
}
