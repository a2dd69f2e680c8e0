package core

// Client is one room member: a server-assigned identity bound to a
// connection for the connection's lifetime.
type Client struct {
	ID   string
	Name string
	Conn Conn
}
