package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type AmountSuite struct {
	suite.Suite
}

func TestAmountSuite(t *testing.T) {
	suite.Run(t, new(AmountSuite))
}

func (s *AmountSuite) TestParse() {
	s.Run("decimal string", func() {
		a, err := ParseAmount("1000000")
		s.Require().NoError(err)
		s.Equal("1000000", a.String())
	})

	s.Run("values beyond uint64", func() {
		a, err := ParseAmount("500000000000000000000000000")
		s.Require().NoError(err)
		s.Equal("500000000000000000000000000", a.String())
	})

	s.Run("rejects negative", func() {
		_, err := ParseAmount("-1")
		s.Error(err)
	})

	s.Run("rejects garbage", func() {
		_, err := ParseAmount("12x4")
		s.Error(err)
	})
}

func (s *AmountSuite) TestArithmetic() {
	s.Run("plus", func() {
		s.Equal(NewAmount(30), NewAmount(10).Plus(NewAmount(20)))
	})

	s.Run("minus", func() {
		s.Equal(NewAmount(7), NewAmount(10).Minus(NewAmount(3)))
	})

	s.Run("minus saturates at zero", func() {
		s.True(NewAmount(3).Minus(NewAmount(10)).IsZero())
	})

	s.Run("receiver is never mutated", func() {
		a := NewAmount(10)
		_ = a.Plus(NewAmount(5))
		_ = a.Minus(NewAmount(5))
		s.Equal(NewAmount(10), a)
	})

	s.Run("muldiv keeps full precision", func() {
		remainder := MustAmount("900000000000000000000000")
		half := remainder.MulDiv(180, 360)
		s.Equal("450000000000000000000000", half.String())
	})

	s.Run("muldiv percentage", func() {
		s.Equal(NewAmount(100000), NewAmount(1000000).MulDiv(10, 100))
	})
}

func (s *AmountSuite) TestCompare() {
	s.Equal(-1, NewAmount(1).Cmp(NewAmount(2)))
	s.Equal(0, NewAmount(2).Cmp(NewAmount(2)))
	s.Equal(1, NewAmount(3).Cmp(NewAmount(2)))
	s.True(NewAmount(2).Equal(NewAmount(2)))
	s.True(ZeroAmount.IsZero())
	s.False(NewAmount(1).IsZero())
}

func (s *AmountSuite) TestJSON() {
	s.Run("round trips as decimal string", func() {
		data, err := json.Marshal(MustAmount("123456789012345678901234567890"))
		s.Require().NoError(err)
		s.Equal(`"123456789012345678901234567890"`, string(data))

		var a Amount
		s.Require().NoError(json.Unmarshal(data, &a))
		s.Equal("123456789012345678901234567890", a.String())
	})

	s.Run("accepts bare numbers", func() {
		var a Amount
		s.Require().NoError(json.Unmarshal([]byte(`42`), &a))
		s.Equal(NewAmount(42), a)
	})
}

func (s *AmountSuite) TestSQL() {
	s.Run("value emits decimal text", func() {
		v, err := NewAmount(1000).Value()
		s.Require().NoError(err)
		s.Equal("1000", v)
	})

	s.Run("scans text and bytes", func() {
		var a Amount
		s.Require().NoError(a.Scan("1000"))
		s.Equal(NewAmount(1000), a)
		s.Require().NoError(a.Scan([]byte("2000")))
		s.Equal(NewAmount(2000), a)
	})

	s.Run("rejects negative int64", func() {
		var a Amount
		s.Error(a.Scan(int64(-5)))
	})
}
