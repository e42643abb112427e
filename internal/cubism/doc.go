// Package cubism registers the Live2D Cubism Core as the "cubism" runtime
// core when built with the cubism tag:
//
//	CGO_CFLAGS=-I$CUBISM/Core/include CGO_LDFLAGS=-L$CUBISM/Core/lib/linux/x86_64 \
//	    go build -tags cubism ./cmd/puppetview
//
// Without the tag the package is empty and only the fixture core is
// available.
package cubism

// Name is the registry name of the Cubism core.
const Name = "cubism"
