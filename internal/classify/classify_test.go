package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edilcheck/compliance-pipeline/constants"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"durc by acronym",
			"Documento Unico di Regolarità Contributiva (DURC) On Line",
			constants.DocTypeDURC,
		},
		{
			"durc by spelled-out phrase",
			"si attesta la regolarità contributiva della ditta",
			constants.DocTypeDURC,
		},
		{
			"visura camerale",
			"VISURA ORDINARIA - Camera di Commercio di Milano",
			constants.DocTypeVisura,
		},
		{
			"attestato preposto before generic attestato",
			"Attestato di formazione per Preposto ai sensi del D.Lgs 81/08",
			constants.DocTypeAttestatoPreposto,
		},
		{
			"attestato lavoratore",
			"ATTESTATO di frequenza - formazione lavoratori",
			constants.DocTypeAttestatoLavoratore,
		},
		{
			"dvr",
			"Documento di Valutazione dei Rischi aziendale",
			constants.DocTypeDVR,
		},
		{
			"pos",
			"PIANO OPERATIVO DI SICUREZZA - cantiere via Roma",
			constants.DocTypePOS,
		},
		{
			"registro antincendio",
			"Registro dei controlli antincendio",
			constants.DocTypeRegistroAntincendio,
		},
		{
			"no match yields empty",
			"fattura n. 42 del 2025",
			"",
		},
		{
			"empty text",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}
