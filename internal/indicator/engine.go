package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// Params are the resolved parameters for one Compute call.
type Params struct {
	RSIPeriod       int     `yaml:"rsi_period" json:"rsi_period"`
	MACDFast        int     `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow" json:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal" json:"macd_signal"`
	BollingerPeriod int     `yaml:"bollinger_period" json:"bollinger_period"`
	BollingerMult   float64 `yaml:"bollinger_mult" json:"bollinger_mult"`
}

// DefaultParams returns RSI(14), MACD(12, 26, 9) and Bollinger(20, 2.0).
func DefaultParams() Params {
	return Params{
		RSIPeriod:       DefaultRSIPeriod,
		MACDFast:        DefaultMACDFast,
		MACDSlow:        DefaultMACDSlow,
		MACDSignal:      DefaultMACDSignal,
		BollingerPeriod: DefaultBollingerPeriod,
		BollingerMult:   DefaultBollingerMult,
	}
}

// Validate checks every parameter without computing anything.
func (p Params) Validate() error {
	if err := validatePeriod("rsi period", p.RSIPeriod); err != nil {
		return err
	}
	if err := validatePeriod("macd fast period", p.MACDFast); err != nil {
		return err
	}
	if err := validatePeriod("macd slow period", p.MACDSlow); err != nil {
		return err
	}
	if err := validatePeriod("macd signal period", p.MACDSignal); err != nil {
		return err
	}
	if err := validatePeriod("bollinger period", p.BollingerPeriod); err != nil {
		return err
	}
	if math.IsNaN(p.BollingerMult) || math.IsInf(p.BollingerMult, 0) || p.BollingerMult < 0 {
		return errors.Wrapf(ErrInvalidParameter, "bollinger multiplier must be finite and >= 0, got %v", p.BollingerMult)
	}
	return nil
}

// Snapshot holds every indicator computed over one price series.
type Snapshot struct {
	Prices    []float64
	RSI       Series
	MACD      MACDResult
	Bollinger BollingerResult
}

// Compute runs RSI, MACD and Bollinger over prices with p. The snapshot
// references prices; callers must not mutate the slice afterwards.
func Compute(prices []float64, p Params) (Snapshot, error) {
	if err := p.Validate(); err != nil {
		return Snapshot{}, err
	}

	rsi, err := RSI(prices, p.RSIPeriod)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "rsi")
	}
	macd, err := MACD(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "macd")
	}
	boll, err := Bollinger(prices, p.BollingerPeriod, p.BollingerMult)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "bollinger")
	}

	return Snapshot{
		Prices:    prices,
		RSI:       rsi,
		MACD:      macd,
		Bollinger: boll,
	}, nil
}

// Latest is the final position of every indicator in a snapshot.
type Latest struct {
	Points          int   `json:"points"`
	Price           Value `json:"price"`
	RSI             Value `json:"rsi"`
	MACD            Value `json:"macd"`
	MACDSignal      Value `json:"macd_signal"`
	MACDHistogram   Value `json:"macd_histogram"`
	MACDWarm        bool  `json:"macd_warm"`
	BollingerMiddle Value `json:"bollinger_middle"`
	BollingerUpper  Value `json:"bollinger_upper"`
	BollingerLower  Value `json:"bollinger_lower"`
	BollingerWidth  Value `json:"bollinger_width"`
}

// Latest returns the most recent value of each indicator.
func (s Snapshot) Latest() Latest {
	l := Latest{
		Points:          len(s.Prices),
		RSI:             s.RSI.Last(),
		MACD:            s.MACD.Line.Last(),
		MACDSignal:      s.MACD.Signal.Last(),
		MACDHistogram:   s.MACD.Histogram.Last(),
		MACDWarm:        len(s.Prices) > s.MACD.FirstValid,
		BollingerMiddle: s.Bollinger.Middle.Last(),
		BollingerUpper:  s.Bollinger.Upper.Last(),
		BollingerLower:  s.Bollinger.Lower.Last(),
		BollingerWidth:  s.Bollinger.Width.Last(),
	}
	if len(s.Prices) > 0 {
		l.Price = Defined(s.Prices[len(s.Prices)-1])
	}
	return l
}
