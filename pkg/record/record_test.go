package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	out, err := Canonicalize([]byte(`{ "b":2, "a":{"d":null,"c":"x"} }`))
	require.NoError(t, err)
	require.Equal(t, `{"a":{"c":"x","d":null},"b":2}`, string(out))

	_, err = Canonicalize([]byte(`{`))
	require.Error(t, err)
}

func TestDigestIsStableAcrossKeyOrder(t *testing.T) {
	a, err := Digest([]byte(`{"a":1,"b":2}`))
	require.NoError(t, err)
	b, err := Digest([]byte(`{ "b":2, "a":1 }`))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestEncodeProducesCanonicalBytes(t *testing.T) {
	out, err := Encode(map[string]any{"z": "last", "a": []int{1, 2}})
	require.NoError(t, err)
	require.Equal(t, `{"a":[1,2],"z":"last"}`, string(out))
}

func TestValidateRecord(t *testing.T) {
	valid := `{
		"metadata": {"formType": "upload", "schemaVersion": "1.0", "generatedAt": "2024-03-10T18:45:00-05:00"},
		"formData": {"rName": "Jane Doe", "otherInfo": null, "locations": [{"city": "Brampton", "cityOther": null}]},
		"calculations": {
			"locations": [{
				"index": 0,
				"duration": {"valid": true, "minutes": 65, "text": "1 hour 5 minutes"},
				"retention": {"days": 3, "message": "URGENT", "isUrgent": true},
				"offset": null,
				"adjustedStart": null,
				"adjustedEnd": null
			}],
			"urgentFlags": ["Location 1: URGENT"],
			"completionPercent": 100
		}
	}`
	require.NoError(t, Validate([]byte(valid)))

	invalid := `{
		"metadata": {"formType": "parcel", "schemaVersion": "1.0", "generatedAt": "2024-03-10T18:45:00-05:00"},
		"formData": {},
		"calculations": {"locations": [], "urgentFlags": [], "completionPercent": 140}
	}`
	require.Error(t, Validate([]byte(invalid)))
}

func TestSchemaReturnsCopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	require.NotEqual(t, byte('x'), Schema()[0])
}
