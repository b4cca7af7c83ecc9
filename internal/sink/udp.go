package sink

import "net"

// DefaultUDPAddr is the production collector address; overridable via
// configuration so a fixed hostname is never hardwired without an escape
// hatch.
const DefaultUDPAddr = "mtsgwm3ux05ac02.emea.avnet.com:4041"

// UDP is a Sink that writes each line as a single UDP datagram to a fixed
// remote address, dialled once at construction.
type UDP struct {
	conn *net.UDPConn
}

// DialUDP resolves and dials addr (host:port) once; subsequent Send calls
// reuse the connection.
func DialUDP(addr string) (*UDP, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return &UDP{conn: conn}, nil
}

// Send writes line as one UDP datagram.
func (u *UDP) Send(line string) error {
	_, err := u.conn.Write([]byte(line))
	return err
}

// Close releases the underlying UDP socket.
func (u *UDP) Close() error { return u.conn.Close() }
