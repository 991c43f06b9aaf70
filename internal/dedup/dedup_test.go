package dedup

import (
	"testing"

	"pickwire/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key(1, 42, models.PickSpread, models.SideHome, "Jane Doe")
	b := Key(1, 42, models.PickSpread, models.SideHome, "Jane Doe")
	assert.Equal(t, a, b, "Identical inputs should produce identical keys")
}

func TestKey_PickerCaseInsensitive(t *testing.T) {
	a := Key(1, 42, models.PickSpread, models.SideHome, "Jane Doe")
	b := Key(1, 42, models.PickSpread, models.SideHome, "  jane doe ")
	c := Key(1, 42, models.PickSpread, models.SideHome, "JANE DOE")
	assert.Equal(t, a, b, "Whitespace should not change the key")
	assert.Equal(t, a, c, "Capitalization should not change the key")
}

func TestKey_FieldChangesChangeKey(t *testing.T) {
	base := Key(1, 42, models.PickSpread, models.SideHome, "Jane Doe")

	assert.NotEqual(t, base, Key(2, 42, models.PickSpread, models.SideHome, "Jane Doe"), "Source change should change the key")
	assert.NotEqual(t, base, Key(1, 43, models.PickSpread, models.SideHome, "Jane Doe"), "Match change should change the key")
	assert.NotEqual(t, base, Key(1, 42, models.PickMoneyline, models.SideHome, "Jane Doe"), "Pick type change should change the key")
	assert.NotEqual(t, base, Key(1, 42, models.PickSpread, models.SideAway, "Jane Doe"), "Side change should change the key")
	assert.NotEqual(t, base, Key(1, 42, models.PickSpread, models.SideHome, "John Doe"), "Picker change should change the key")
}

func TestKey_FixedLengthHex(t *testing.T) {
	key := Key(7, 9001, models.PickOverUnder, models.SideOver, "Picks McGee")
	assert.Len(t, key, 64, "Key should be a 64-character hex string")
	assert.Regexp(t, "^[0-9a-f]{64}$", key, "Key should be lowercase hexadecimal")
}
