package planner

import (
	"context"

	"lecturemate/internal/util"
	"lecturemate/internal/util/deps"
)

// SystemOpener opens URLs with the platform's browser helper.
type SystemOpener struct {
	opener deps.Opener
}

// NewSystemOpener resolves the helper binary. customPath overrides discovery.
func NewSystemOpener(customPath string) (*SystemOpener, error) {
	o, err := deps.FindOpener(customPath)
	if err != nil {
		return nil, err
	}
	return &SystemOpener{opener: o}, nil
}

func (s *SystemOpener) Open(ctx context.Context, url string) error {
	args := append(append([]string{}, s.opener.Args...), url)
	_, err := util.Run(ctx, util.CmdSpec{Path: s.opener.Path, Args: args})
	return err
}
