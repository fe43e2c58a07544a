package placer

// SetConnectivityCheck replaces the errno classification so tests can
// exercise the fallback path without an actual unreachable mount.
func (p *Placer) SetConnectivityCheck(fn func(error) bool) {
	p.connectivityCheck = fn
}
