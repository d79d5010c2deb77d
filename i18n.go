package conversation

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Translator turns message keys into user-facing text.
type Translator interface {
	Translate(key string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(key string) string

func (f TranslatorFunc) Translate(key string) string { return f(key) }

// Message keys.
const (
	KeyNoSubject   = "nosubject"
	KeyReply       = "reply.re"
	KeyForward     = "reply.fw"
	KeyByte        = "byte"
	KeyMailSent    = "mail.sent"
	KeyInactive    = "invalid"
	KeyUndelivered = "undelivered"
	KeyDraftSaved  = "draft.saved"
	KeyUpdating    = "updating"
)

var translations = map[string]struct{ fr, en string }{
	KeyNoSubject:   {"(Aucun objet)", "(No subject)"},
	KeyReply:       {"Re : ", "Re: "},
	KeyForward:     {"Tr : ", "Fwd: "},
	KeyByte:        {"octets", "bytes"},
	KeyMailSent:    {"Message envoyé", "Message sent"},
	KeyInactive:    {" n'a pas encore activé son compte", " has not activated their account yet"},
	KeyUndelivered: {" : destinataire(s) introuvable(s)", ": recipient(s) not found"},
	KeyDraftSaved:  {"Brouillon enregistré", "Draft saved"},
	KeyUpdating:    {"Mise à jour...", "Updating..."},

	"Teacher":   {"Enseignant", "Teacher"},
	"Student":   {"Élève", "Student"},
	"Relative":  {"Parent", "Relative"},
	"Personnel": {"Personnel", "Staff"},
	"Guest":     {"Invité", "Guest"},
}

// Catalog translates the package keys and profile names into French or
// English. Unknown keys are returned as is.
type Catalog struct {
	printer *message.Printer
	keys    map[string]bool
}

// NewCatalog returns the catalog for the language closest to tag.
func NewCatalog(tag language.Tag) *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.French))
	keys := make(map[string]bool, len(translations))
	for key, tr := range translations {
		_ = b.SetString(language.French, key, tr.fr)
		_ = b.SetString(language.English, key, tr.en)
		keys[key] = true
	}

	langs := b.Languages()
	matched := language.French
	if _, i, conf := language.NewMatcher(langs).Match(tag); conf != language.No {
		matched = langs[i]
	}
	return &Catalog{
		printer: message.NewPrinter(matched, message.Catalog(b)),
		keys:    keys,
	}
}

// Translate returns the text of key.
func (c *Catalog) Translate(key string) string {
	if !c.keys[key] {
		return key
	}
	return c.printer.Sprintf(key)
}

func translate(t Translator, key string) string {
	if t == nil {
		return key
	}
	return t.Translate(key)
}
