package storefront

import (
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/hosted"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/probe"
)

var (
	_ Backend = (*clients.Primary)(nil)
	_ Backend = (*hosted.Backend)(nil)
	_ Backend = (*BackendMock)(nil)
	_ Prober  = (*probe.Prober)(nil)
)
