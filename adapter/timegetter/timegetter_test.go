package timegetter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TimeGetterTestSuite struct {
	suite.Suite
	tg *TimeGetter
}

func (s *TimeGetterTestSuite) SetupTest() {
	s.tg = NewTimeGetter().(*TimeGetter)
}

func (s *TimeGetterTestSuite) TestGetTime() {
	before := time.Now().Add(-time.Millisecond)

	result := s.tg.GetTime()

	after := time.Now()

	s.NotZero(result)
	s.True(result.After(before))
	s.False(result.After(after))
	s.Equal(time.UTC, result.Location())
	s.Zero(result.Nanosecond() % int(time.Millisecond))
}

func (s *TimeGetterTestSuite) TestFixed() {
	loc := time.FixedZone("X", 3600)
	t := time.Date(2024, 5, 6, 7, 8, 9, 123456789, loc)
	tg := Fixed(t)

	s.Equal(time.Date(2024, 5, 6, 6, 8, 9, 123000000, time.UTC), tg.GetTime())
	s.Equal(tg.GetTime(), tg.GetTime())
}

func TestTimeGetterTestSuite(t *testing.T) {
	suite.Run(t, new(TimeGetterTestSuite))
}
