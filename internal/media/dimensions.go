package media

// Default thumbnail size.
const (
	ThumbnailWidth  = 400
	ThumbnailHeight = 500
)

// Dimensions is a target canvas size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// DimensionPolicy decides the canvas size for a source of the given
// intrinsic size.
type DimensionPolicy interface {
	Dimensions(srcWidth, srcHeight int) Dimensions
}

// ConstantDimensionPolicy returns the same size for every source. The source
// size is accepted but not used.
type ConstantDimensionPolicy struct {
	Size Dimensions
}

// DefaultDimensionPolicy returns the 400x500 constant policy.
func DefaultDimensionPolicy() ConstantDimensionPolicy {
	return ConstantDimensionPolicy{Size: Dimensions{Width: ThumbnailWidth, Height: ThumbnailHeight}}
}

// Dimensions implements DimensionPolicy.
func (p ConstantDimensionPolicy) Dimensions(_, _ int) Dimensions {
	return p.Size
}
