package audio

import (
	"fmt"
	"math"
)

// Twilio media streams carry G.711 µ-law at 8kHz mono.
const CarrierSampleRate = 8000

const (
	ulawBias = 0x84
	ulawClip = 32635
)

// DecodeCarrier expands 8-bit µ-law bytes into linear PCM16 samples.
// Input and output are both 8kHz mono.
func DecodeCarrier(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio: cannot decode empty carrier payload")
	}
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = ulawToLinear(b)
	}
	return out, nil
}

// EncodeForCarrier resamples linear PCM16 at sourceRate down to 8kHz mono and
// compresses it to µ-law. Resampling is linear interpolation, not band-limited;
// acceptable for voice intelligibility over the telephone network.
func EncodeForCarrier(pcm []int16, sourceRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("audio: cannot encode empty PCM buffer")
	}
	if sourceRate <= 0 {
		return nil, fmt.Errorf("audio: invalid source rate %d", sourceRate)
	}
	samples := resampleLinear(pcm, sourceRate, CarrierSampleRate)
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = linearToMuLaw(s)
	}
	return out, nil
}

func ulawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + ulawBias
	value <<= uint(exp)
	value -= ulawBias
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

func linearToMuLaw(sample int16) byte {
	sign := byte(0)
	s := int(sample)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > ulawClip {
		s = ulawClip
	}
	s += ulawBias
	exp := byte(7)
	for mask := 0x4000; (s&mask) == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte((s >> (uint(exp) + 3)) & 0x0F)
	return ^(sign | (exp << 4) | mant)
}

func resampleLinear(in []int16, inRate, outRate int) []int16 {
	if inRate == outRate || len(in) == 0 {
		return append([]int16(nil), in...)
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(math.Round(float64(len(in)) * ratio))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		if i0 >= len(in) {
			i0 = len(in) - 1
		}
		i1 := i0 + 1
		if i1 >= len(in) {
			i1 = len(in) - 1
		}
		f := srcPos - float64(i0)
		v := float64(in[i0])*(1.0-f) + float64(in[i1])*f
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// BytesToPCM16 converts little-endian 16-bit sample bytes to int16 samples.
// A trailing odd byte is dropped.
func BytesToPCM16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}
