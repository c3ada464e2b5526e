package enroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geHiddenInputPage = `<html><body>
<input type="hidden" name="firstXkkzId" id="firstXkkzId" value="A1B2C3D4E5"/>
</body></html>`

const geTabPage = `<html><body>
<a id="tab_kklx_10" href="javascript:void(0);" onclick="queryCourse(this,'10','F6E5D4C3B2','2024','3')" role="tab">通识选修课</a>
</body></html>`

const pePage = `<html><body>
<a id="tab_kklx_05" href="javascript:void(0);"
   onclick="queryCourse(this,'05','99887766','2024','3')"
   role="tab">体育分项</a>
<input type="hidden" name="xqh_id" id="xqh_id" value="1"/>
<input type="hidden" name="jg_id" id="jg_id_1" value="206"/>
<input type="hidden" name="ccdm" id="ccdm" value="2"/>
</body></html>`

func TestByName(t *testing.T) {
	ge, err := ByName("general-elective")
	require.NoError(t, err)
	assert.Equal(t, "10", ge.Code())

	pe, err := ByName("physical-education")
	require.NoError(t, err)
	assert.Equal(t, "05", pe.Code())

	_, err = ByName("underwater-basket-weaving")
	assert.Error(t, err)
}

func TestGeneralElectiveContextID(t *testing.T) {
	id, ok := GeneralElective{}.ExtractContextID(geHiddenInputPage)
	require.True(t, ok)
	assert.Equal(t, "A1B2C3D4E5", id)
}

func TestGeneralElectiveContextIDFallback(t *testing.T) {
	// Without the hidden field the id comes from the tab anchor.
	id, ok := GeneralElective{}.ExtractContextID(geTabPage)
	require.True(t, ok)
	assert.Equal(t, "F6E5D4C3B2", id)
}

func TestGeneralElectiveContextIDMiss(t *testing.T) {
	_, ok := GeneralElective{}.ExtractContextID("<html><body>nothing here</body></html>")
	assert.False(t, ok)
}

func TestPhysicalEducationContextID(t *testing.T) {
	id, ok := PhysicalEducation{}.ExtractContextID(pePage)
	require.True(t, ok)
	assert.Equal(t, "99887766", id)
}

func TestPhysicalEducationAuxFields(t *testing.T) {
	fields := PhysicalEducation{}.AuxFields(pePage)

	// Scraped values win over placeholders.
	assert.Equal(t, "1", fields.Get("xqh_id"))
	assert.Equal(t, "2", fields.Get("ccdm"))
	assert.Equal(t, "206", fields.Get("jg_id"))
	// Constants the page does not carry fall back to the placeholder.
	assert.Equal(t, "666", fields.Get("zyfx_id"))
	assert.Equal(t, "666", fields.Get("xbm"))
}

func TestPhysicalEducationAuxFieldsDefaults(t *testing.T) {
	fields := PhysicalEducation{}.AuxFields("")
	for _, name := range []string{"zyfx_id", "bh_id", "xbm", "xslbdm", "mzm", "xz", "ccdm", "xsbj", "xqh_id"} {
		assert.Equal(t, "666", fields.Get(name), "field %s", name)
	}
	assert.Equal(t, "206", fields.Get("jg_id"))
}

func TestCohortOf(t *testing.T) {
	assert.Equal(t, "2019", CohortOf("1912010304"))
	assert.Equal(t, "2024", CohortOf("2412010304"))
	assert.Equal(t, "", CohortOf("1"))
}
