package tier

import "context"

// StaticTier is the last tier. It makes no external calls.
type StaticTier struct {
	brand string
}

func NewStaticTier(brand string) *StaticTier {
	return &StaticTier{brand: brand}
}

func (t *StaticTier) Name() string { return NameStatic }

func (t *StaticTier) Render(in Input) Content {
	return Content{Subject: SubjectStatic, Body: StaticBody(in.Username, in.Booked.Title, t.brand)}
}

// Attempt lets the static tier also sit in a Strategy list; it never fails.
func (t *StaticTier) Attempt(_ context.Context, in Input) (Content, error) {
	return t.Render(in), nil
}
