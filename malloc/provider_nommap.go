//go:build !unix

package malloc

import "github.com/fyrchik/evalloc/api"
import "github.com/pkg/errors"

func newmmapprovider() (api.Provider, error) {
	return nil, errors.New("mmap provider not supported on this platform")
}
