package database

// BubblePosition is where the minimized call bubble was last placed.
type BubblePosition struct {
	UserID string
	X      float64
	Y      float64
}

// DefaultBubblePosition returns the position used before the user moves the bubble.
func DefaultBubblePosition(userID string) *BubblePosition {
	return &BubblePosition{
		UserID: userID,
		X:      20,
		Y:      20,
	}
}

// DeepCopy creates a deep copy of the given BubblePosition.
func (b *BubblePosition) DeepCopy() *BubblePosition {
	return &BubblePosition{
		UserID: b.UserID,
		X:      b.X,
		Y:      b.Y,
	}
}
