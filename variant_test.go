package wmi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantAccessors(t *testing.T) {
	v := VarI4(-42)
	assert.Equal(t, KindI4, v.Kind())
	i, ok := v.Int()
	require.True(t, ok)
	assert.Equal(t, int64(-42), i)
	_, ok = v.Uint()
	assert.False(t, ok)

	v = VarUI8(18446744073709551615)
	u, ok := v.Uint()
	require.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), u)

	v = VarString("hello")
	s, ok := v.Str()
	require.True(t, ok)
	assert.Equal(t, "hello", s)
	_, ok = v.Bool()
	assert.False(t, ok)

	arr, ok := VarArray([]Variant{VarBool(true), VarNull()}).Array()
	require.True(t, ok)
	require.Len(t, arr, 2)
	b, ok := arr[0].Bool()
	require.True(t, ok)
	assert.True(t, b)
	assert.True(t, arr[1].IsNil())
}

func TestVariantValueTypes(t *testing.T) {
	assert.Equal(t, int8(-1), VarI1(-1).Value())
	assert.Equal(t, int16(-2), VarI2(-2).Value())
	assert.Equal(t, int32(-3), VarI4(-3).Value())
	assert.Equal(t, int64(-4), VarI8(-4).Value())
	assert.Equal(t, uint8(1), VarUI1(1).Value())
	assert.Equal(t, uint16(2), VarUI2(2).Value())
	assert.Equal(t, uint32(3), VarUI4(3).Value())
	assert.Equal(t, uint64(4), VarUI8(4).Value())
	assert.Equal(t, float32(1.5), VarR4(1.5).Value())
	assert.Equal(t, float64(2.5), VarR8(2.5).Value())
	assert.Equal(t, "s", VarString("s").Value())
	assert.Nil(t, VarEmpty().Value())
	assert.Nil(t, VarNull().Value())
}

func TestVariantJSON(t *testing.T) {
	cases := []struct {
		in   Variant
		want string
	}{
		{VarNull(), `null`},
		{VarEmpty(), `null`},
		{VarBool(true), `true`},
		{VarI4(-7), `-7`},
		{VarUI8(18446744073709551615), `18446744073709551615`},
		{VarString(`C:\Windows`), `"C:\\Windows"`},
		{VarArray([]Variant{VarI4(1), VarString("two"), VarNull()}), `[1,"two",null]`},
	}
	for _, c := range cases {
		got, err := json.Marshal(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, string(got))
	}

	got, err := json.Marshal(map[string]Variant{"Name": VarString("svchost.exe")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":"svchost.exe"}`, string(got))
}

func TestCoerceToCIMType(t *testing.T) {
	cases := []struct {
		name string
		in   Variant
		ct   CIMType
		want Variant
	}{
		// uint64 and sint64 always travel as strings.
		{"string to uint64", VarString("18446744073709551615"), CIMUint64, VarUI8(18446744073709551615)},
		{"string to sint64", VarString("-9223372036854775808"), CIMSint64, VarI8(-9223372036854775808)},
		{"string to uint32", VarString("4000000000"), CIMUint32, VarUI4(4000000000)},
		{"string stays string", VarString("abc"), CIMString, VarString("abc")},
		{"datetime stays string", VarString("20190113200517.500000-180"), CIMDatetime, VarString("20190113200517.500000-180")},

		// uint8/uint16 arrive widened in an i4.
		{"i4 to uint8", VarI4(200), CIMUint8, VarUI1(200)},
		{"i4 to uint16", VarI4(65000), CIMUint16, VarUI2(65000)},
		{"i4 to sint16", VarI4(-1), CIMSint16, VarI2(-1)},

		// char16 becomes a one-rune string.
		{"i4 to char16", VarI4(70), CIMChar16, VarString("F")},

		{"bool passthrough", VarBool(true), CIMBoolean, VarBool(true)},
		{"null passthrough", VarNull(), CIMUint32, VarNull()},

		{"array elementwise", VarArray([]Variant{VarString("1"), VarString("2")}),
			CIMFlagArray | CIMUint64, VarArray([]Variant{VarUI8(1), VarUI8(2)})},
		{"scalar wrapped into array", VarI4(5), CIMFlagArray | CIMSint32,
			VarArray([]Variant{VarI4(5)})},
		{"null array property", VarNull(), CIMFlagArray | CIMString, VarArray([]Variant{})},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.in.CoerceToCIMType(c.ct)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestCoerceToCIMTypeErrors(t *testing.T) {
	_, err := VarBool(true).CoerceToCIMType(CIMUint8)
	assert.Error(t, err)

	_, err = VarString("not a number").CoerceToCIMType(CIMUint32)
	assert.Error(t, err)

	_, err = VarString("256").CoerceToCIMType(CIMUint8)
	assert.Error(t, err, "out of range for the target width")
}

func TestVariantKindString(t *testing.T) {
	assert.Equal(t, "UI8", KindUI8.String())
	assert.Equal(t, "String", KindString.String())
}
