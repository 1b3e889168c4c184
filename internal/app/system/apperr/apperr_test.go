package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ApperrSuite struct {
	suite.Suite
}

func TestApperrSuite(t *testing.T) {
	suite.Run(t, new(ApperrSuite))
}

func (s *ApperrSuite) TestErrorString() {
	s.Run("message wins", func() {
		s.Equal("missing verb", Validation("verb", "missing verb").Error())
	})
	s.Run("falls back to kind", func() {
		s.Equal("not_found", (&Error{Kind: KindNotFound}).Error())
	})
}

func (s *ApperrSuite) TestIsMatchesByKind() {
	err := fmt.Errorf("record: %w", Validation("object", "object.id is required"))
	s.True(errors.Is(err, ErrValidation))
	s.False(errors.Is(err, ErrNotFound))

	var e *Error
	s.Require().True(errors.As(err, &e))
	s.Equal("object", e.Field)
}

func (s *ApperrSuite) TestUpstreamDeadline() {
	s.Run("deadline becomes timeout", func() {
		err := Upstream(fmt.Errorf("post: %w", context.DeadlineExceeded), "ai backend timed out")
		s.Equal(KindUpstreamTimeout, KindOf(err))
		s.True(errors.Is(err, context.DeadlineExceeded))
	})
	s.Run("other failures stay upstream", func() {
		err := Upstream(errors.New("connection refused"), "ai backend unavailable")
		s.Equal(KindUpstream, KindOf(err))
	})
}

func (s *ApperrSuite) TestStatus() {
	cases := map[string]struct {
		err  error
		want int
	}{
		"unauthenticated": {Unauthenticated("no identity"), http.StatusUnauthorized},
		"forbidden":       {Forbidden("not yours"), http.StatusForbidden},
		"validation":      {Validation("verb", "required"), http.StatusBadRequest},
		"not found":       {NotFound("no such project"), http.StatusNotFound},
		"upstream":        {Upstream(errors.New("500"), "bad gateway"), http.StatusBadGateway},
		"timeout":         {Upstream(context.DeadlineExceeded, "slow"), http.StatusGatewayTimeout},
		"persistence":     {Persistence(errors.New("write failed"), "could not save"), http.StatusInternalServerError},
		"plain error":     {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			s.Equal(tc.want, Status(tc.err))
		})
	}
}
