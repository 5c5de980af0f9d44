//go:build !darwin

package micswitch

func newBackend() (Backend, error) {
	return nil, ErrUnsupportedPlatform
}
