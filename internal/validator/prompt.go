package validator

import (
	"fmt"
	"strings"
)

const systemPrompt = `Sei un validatore di documenti di conformita per cantieri edili italiani.
Valuti un documento rispetto alle regole fornite e rispondi SOLO con un oggetto JSON conforme allo schema indicato.
Regole:
- Esegui esattamente i controlli elencati, con gli id indicati. Non inventare controlli.
- Cita i passaggi normativi usando gli id [[CIT:...]] presenti nel contesto. Non inventare citazioni.
- Se il documento non e' pertinente per questa azienda (deroga o esenzione applicabile), imposta overall.nonPertinente=true e overall.isValid=true, spiegando il motivo.
- Le date sono in formato ISO YYYY-MM-DD; usa stringa vuota se assenti.
- overall.reasons deve contenere almeno un motivo leggibile in italiano.
- Non aggiungere testo fuori dal JSON.`

// maxPromptText bounds the document text embedded in the prompt.
const maxPromptText = 24000

// BuildUserPrompt assembles the validation request: upload metadata, the
// active checks with any deroghe, the retrieved regulatory context tagged
// with [[CIT:id]] markers, and the (redacted) document text.
func BuildUserPrompt(in Input, text string) string {
	var b strings.Builder

	b.WriteString("## Documento\n")
	if in.Metadata.Filename != "" {
		fmt.Fprintf(&b, "File: %s\n", in.Metadata.Filename)
	}
	if in.Metadata.CompanyName != "" {
		fmt.Fprintf(&b, "Azienda dichiarata: %s\n", in.Metadata.CompanyName)
	}
	if in.DocType != "" {
		fmt.Fprintf(&b, "Tipo documento atteso: %s\n", in.DocType)
	} else {
		b.WriteString("Tipo documento: da determinare\n")
	}

	b.WriteString("\n## Controlli richiesti\n")
	if in.Rules == nil || len(in.Rules.Checks) == 0 {
		b.WriteString("Nessuna regola specifica disponibile: valuta la validita generale del documento.\n")
	} else {
		for _, c := range in.Rules.Checks {
			fmt.Fprintf(&b, "- [%s] %s", c.ID, c.Description)
			if len(c.NormativeReferences) > 0 {
				fmt.Fprintf(&b, " (rif: %s)", strings.Join(c.NormativeReferences, ", "))
			}
			b.WriteString("\n")
			for _, d := range c.Deroghe {
				fmt.Fprintf(&b, "  - deroga: %s", d.Condition)
				if d.ValidUntil != "" {
					fmt.Fprintf(&b, " (valida fino al %s)", d.ValidUntil)
				}
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n## Contesto normativo\n")
	if len(in.Chunks) == 0 {
		b.WriteString("Nessun passaggio normativo recuperato.\n")
	} else {
		for _, ch := range in.Chunks {
			fmt.Fprintf(&b, "[[CIT:%s]] (%s, pag. %d)\n%s\n\n", ch.ID, ch.Source, ch.Page, ch.Snippet)
		}
	}

	b.WriteString("## Testo del documento\n")
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}
	b.WriteString(text)
	b.WriteString("\n")

	return b.String()
}
