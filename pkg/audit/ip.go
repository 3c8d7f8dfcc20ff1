package audit

import (
	"math/rand"
	"net"
)

// FallbackIP is reported when the local address cannot be determined.
const FallbackIP = "192.168.1.100"

// SyntheticExternalIP fabricates an "external" address for failure
// events. It is a cosmetic simulation marker, not threat intelligence.
func SyntheticExternalIP() string {
	return net.IPv4(203, 45, 67, byte(85+rand.Intn(15))).String()
}

// LocalIP resolves the machine's outbound address best-effort. Dialing
// UDP sends no packets; any failure yields FallbackIP, never an error.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return FallbackIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return FallbackIP
	}
	return addr.IP.String()
}
