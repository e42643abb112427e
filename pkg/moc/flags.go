package moc

// ConstantFlags are the per-drawable flags fixed at load time.
type ConstantFlags uint8

// Constant flag bits.
const (
	BlendAdditive       ConstantFlags = 1 << 0
	BlendMultiplicative ConstantFlags = 1 << 1
	IsDoubleSided       ConstantFlags = 1 << 2
	IsInvertedMask      ConstantFlags = 1 << 3
)

// Has reports whether all bits of f are set.
func (c ConstantFlags) Has(f ConstantFlags) bool {
	return c&f == f
}

// DynamicFlags are the per-drawable flags refreshed by every update.
type DynamicFlags uint8

// Dynamic flag bits.
const (
	IsVisible                DynamicFlags = 1 << 0
	VisibilityDidChange      DynamicFlags = 1 << 1
	OpacityDidChange         DynamicFlags = 1 << 2
	DrawOrderDidChange       DynamicFlags = 1 << 3
	RenderOrderDidChange     DynamicFlags = 1 << 4
	VertexPositionsDidChange DynamicFlags = 1 << 5

	// AnyChange masks every "did change" bit.
	AnyChange = VisibilityDidChange | OpacityDidChange | DrawOrderDidChange |
		RenderOrderDidChange | VertexPositionsDidChange
)

// Has reports whether all bits of f are set.
func (d DynamicFlags) Has(f DynamicFlags) bool {
	return d&f == f
}
