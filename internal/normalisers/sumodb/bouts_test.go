package sumodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

const resultsURL = "https://sumodb.sumogames.de/Results.aspx?b=202401&d=Makuuchi"

const resultsHTML = `<html><head><title>Results Hatsu 2024 Day 3</title></head><body><table class="tk_table">
<tr>
  <td class="tk_kekka"><img src="img/hoshi_kuro.gif"></td>
  <td class="tk_east"><font>M1e</font><br><a href="Rikishi.aspx?r=11927">Hoshoryu</a></td>
  <td class="tk_kim">yorikiri<br><font>(3-0)</font></td>
  <td class="tk_west"><font>M1w</font><br><a href="Rikishi.aspx?r=12451">Kirishima</a></td>
  <td class="tk_kekka"><img src="img/hoshi_shiro.gif"></td>
</tr>
<tr>
  <td class="tk_kekka"><img src="img/hoshi_shiro.gif"></td>
  <td class="tk_east"><font>J2e</font><a href="Rikishi.aspx?r=1">Juryo Man</a></td>
  <td class="tk_kim">oshidashi</td>
  <td class="tk_west"><font>J2w</font><a href="Rikishi.aspx?r=2">Other Man</a></td>
  <td class="tk_kekka"><img src="img/hoshi_kuro.gif"></td>
</tr>
<tr>
  <td class="tk_kekka"><img src="img/hoshi_shiro.gif"></td>
  <td class="tk_east"><font>M2e</font><a href="Rikishi.aspx?r=3">Abi</a></td>
  <td class="tk_kim">Hatakikomi</td>
  <td class="tk_west"><font>M2w</font><a href="Rikishi.aspx?r=4">Ura</a></td>
  <td class="tk_kekka"><img src="img/hoshi_kuro.gif"></td>
</tr>
<tr>
  <td class="tk_east"><font>M3e</font><a href="Rikishi.aspx?r=5">Fusen</a></td>
  <td class="tk_kim"></td>
  <td class="tk_west"><font>M3w</font>Nobody</td>
</tr>
</table></body></html>`

func TestParseBouts_HTML(t *testing.T) {
	bouts, err := New().ParseBouts(snapshot("text/html", resultsURL, resultsHTML), domain.Makuuchi)
	require.NoError(t, err)
	require.Len(t, bouts, 2)

	assert.Equal(t, domain.ParsedBout{
		Day:            3,
		Division:       domain.Makuuchi,
		BoutNo:         1,
		EastShikona:    "Hoshoryu",
		WestShikona:    "Kirishima",
		EastSumoDBID:   "11927",
		WestSumoDBID:   "12451",
		WinnerShikona:  "Hoshoryu",
		WinnerSumoDBID: "11927",
		Kimarite:       "yorikiri",
	}, bouts[0])

	assert.Equal(t, 2, bouts[1].BoutNo)
	assert.Equal(t, "4", bouts[1].WinnerSumoDBID)
	assert.Equal(t, "hatakikomi", bouts[1].Kimarite)
}

func TestParseBouts_HTMLDayFallbacks(t *testing.T) {
	body := `<html><body><table><tr>
<td class="tk_east"><font>Jk1e</font><a href="Rikishi.aspx?r=7">A</a></td>
<td class="tk_kim">oshidashi</td>
<td class="tk_west"><font>Jk1w</font><a href="Rikishi.aspx?r=8">B</a></td>
</tr></table></body></html>`

	bouts, err := New().ParseBouts(snapshot("text/html", "https://sumodb.sumogames.de/Results.aspx?b=202401&d=12", body), domain.Jonokuchi)
	require.NoError(t, err)
	assert.Equal(t, 12, bouts[0].Day)
	assert.Empty(t, bouts[0].WinnerShikona)

	bouts, err = New().ParseBouts(snapshot("text/html", "https://sumodb.sumogames.de/Results.aspx?b=202401&d=Jonokuchi", body), domain.Jonokuchi)
	require.NoError(t, err)
	assert.Equal(t, 1, bouts[0].Day)
}

func TestParseBouts_HTMLErrors(t *testing.T) {
	_, err := New().ParseBouts(snapshot("text/html", resultsURL, "<html><head><title>Day 16</title></head></html>"), domain.Makuuchi)
	var se *domain.SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = New().ParseBouts(snapshot("text/html", resultsURL, resultsHTML), domain.Sandanme)
	assert.ErrorAs(t, err, &se)
}

func TestParseBouts_JSON(t *testing.T) {
	body := `{"torikumi":[
		{"day":2,"no":2,"east":"Abi","west":"Ura","winner":"Ura","kimarite":"hatakikomi","eastId":"r3","westId":4},
		{"day":2,"no":1,"east":"Hoshoryu","west":"Kirishima","winner":"Someone Else"},
		{"day":0,"no":3,"east":"A","west":"B"},
		{"day":2,"no":4,"east":"A"},
		{"day":2,"no":5,"east":"A","west":"B","division":"maegashira"}
	]}`

	bouts, err := New().ParseBouts(snapshot("application/json", resultsURL, body), domain.Makuuchi)
	require.NoError(t, err)
	require.Len(t, bouts, 2)

	assert.Equal(t, 1, bouts[0].BoutNo)
	assert.Empty(t, bouts[0].WinnerShikona, "a winner naming neither side is dropped")

	assert.Equal(t, "3", bouts[1].EastSumoDBID)
	assert.Equal(t, "4", bouts[1].WestSumoDBID)
	assert.Equal(t, "Ura", bouts[1].WinnerShikona)
	assert.Equal(t, "hatakikomi", bouts[1].Kimarite)
	assert.Equal(t, domain.Makuuchi, bouts[1].Division)
}

func TestParseBouts_JSONErrors(t *testing.T) {
	_, err := New().ParseBouts(snapshot("application/json", resultsURL, `{"unknown":[]}`), domain.Makuuchi)
	var se *domain.SchemaError
	assert.ErrorAs(t, err, &se)

	_, err = New().ParseBouts(snapshot("application/json", resultsURL, `[{"day":99,"no":1,"east":"A","west":"B"}]`), domain.Makuuchi)
	assert.ErrorAs(t, err, &se)

	_, err = New().ParseBouts(snapshot("application/json", resultsURL, `[`), domain.Makuuchi)
	var pe *domain.ParseError
	assert.ErrorAs(t, err, &pe)
}
