package core

import (
	"sort"
	"strings"

	"nara.app/nara-gateway/internal/store"
)

const categoryOther = "Autres"

// EmailCategory groups emails for the dashboard. Icon names the frontend
// icon component and Color its utility classes.
type EmailCategory struct {
	Name   string        `json:"name"`
	Emails []store.Email `json:"emails"`
	Count  int           `json:"count"`
	Icon   string        `json:"icon"`
	Color  string        `json:"color"`
}

var labelCategories = map[string]string{
	"INBOX":     "Boîte de réception",
	"SENT":      "Envoyés",
	"DRAFT":     "Brouillons",
	"TRASH":     "Corbeille",
	"SPAM":      "Spam",
	"IMPORTANT": "Important",
	"STARRED":   "Favoris",
}

// keywordCategories is checked in order; the first matching keyword wins.
var keywordCategories = []struct {
	name     string
	keywords []string
}{
	{"Factures & Paiements", []string{"facture", "invoice", "paiement", "payment", "billing", "due", "échéance", "montant", "€", "euro", "dollar", "$", "paypal", "stripe", "virement"}},
	{"Contrats & Documents", []string{"contrat", "contract", "signature", "document", "pdf", "accord", "convention", "agreement", "terms", "conditions"}},
	{"Réunions & Rendez-vous", []string{"réunion", "meeting", "appel", "call", "zoom", "teams", "calendar", "calendrier", "rendez-vous", "appointment", "schedule", "disponible", "available"}},
	{"Projets & Collaborations", []string{"projet", "project", "collaboration", "deadline", "échéance", "livraison", "delivery", "milestone", "jalon", "brief", "cahier des charges"}},
	{"Marketing & Communication", []string{"newsletter", "promotion", "offre", "campaign", "marketing", "publicité", "advertising", "social media", "réseaux sociaux"}},
	{"Support & Assistance", []string{"support", "help", "assistance", "ticket", "issue", "problem", "problème", "bug", "error", "erreur"}},
	{"Notifications & Alertes", []string{"notification", "alert", "alerte", "reminder", "rappel", "confirmation", "confirm", "validation"}},
	{"Réseaux Sociaux", []string{"instagram", "facebook", "twitter", "linkedin", "tiktok", "youtube", "follow", "abonné", "subscriber"}},
}

type categoryStyle struct {
	icon  string
	color string
}

var categoryStyles = map[string]categoryStyle{
	"Boîte de réception":        {"Inbox", "bg-blue-500/10 text-blue-700 border-blue-500/20"},
	"Envoyés":                   {"Send", "bg-green-500/10 text-green-700 border-green-500/20"},
	"Brouillons":                {"FileText", "bg-gray-500/10 text-gray-700 border-gray-500/20"},
	"Corbeille":                 {"Trash", "bg-red-500/10 text-red-700 border-red-500/20"},
	"Spam":                      {"AlertTriangle", "bg-orange-500/10 text-orange-700 border-orange-500/20"},
	"Important":                 {"Star", "bg-gold/10 text-gold-dark border-gold/20"},
	"Favoris":                   {"Star", "bg-yellow-500/10 text-yellow-700 border-yellow-500/20"},
	"Non lus":                   {"Mail", "bg-purple-500/10 text-purple-700 border-purple-500/20"},
	"Avec pièces jointes":       {"Paperclip", "bg-indigo-500/10 text-indigo-700 border-indigo-500/20"},
	"Factures & Paiements":      {"DollarSign", "bg-emerald-500/10 text-emerald-700 border-emerald-500/20"},
	"Contrats & Documents":      {"FileText", "bg-blue-500/10 text-blue-700 border-blue-500/20"},
	"Réunions & Rendez-vous":    {"Calendar", "bg-purple-500/10 text-purple-700 border-purple-500/20"},
	"Projets & Collaborations":  {"Briefcase", "bg-cyan-500/10 text-cyan-700 border-cyan-500/20"},
	"Marketing & Communication": {"Megaphone", "bg-pink-500/10 text-pink-700 border-pink-500/20"},
	"Support & Assistance":      {"HelpCircle", "bg-orange-500/10 text-orange-700 border-orange-500/20"},
	"Notifications & Alertes":   {"Bell", "bg-yellow-500/10 text-yellow-700 border-yellow-500/20"},
	"Réseaux Sociaux":           {"Share2", "bg-rose-500/10 text-rose-700 border-rose-500/20"},
	categoryOther:               {"Mail", "bg-gray-500/10 text-gray-700 border-gray-500/20"},
}

// detectCategory picks a category from, in order: the stored category, the
// first known Gmail label, the first keyword found in the text, the read
// and flag state.
func detectCategory(e store.Email) string {
	if c := deref(e.Category); c != "" {
		return c
	}

	for _, label := range e.LabelIDs {
		if name, ok := labelCategories[label]; ok {
			return name
		}
	}

	text := strings.ToLower(deref(e.Subject) + " " + deref(e.Snippet) + " " + deref(e.BodyText))
	for _, kc := range keywordCategories {
		for _, kw := range kc.keywords {
			if strings.Contains(text, kw) {
				return kc.name
			}
		}
	}

	switch {
	case e.IsImportant:
		return "Important"
	case e.IsStarred:
		return "Favoris"
	case !e.IsRead:
		return "Non lus"
	case e.HasAttachments:
		return "Avec pièces jointes"
	}
	return categoryOther
}

// categorize groups emails by detected category. Each group is newest
// first; groups are ordered by size, then by first appearance.
func categorize(emails []store.Email) []EmailCategory {
	index := make(map[string]int)
	var out []EmailCategory
	for _, e := range emails {
		name := detectCategory(e)
		i, ok := index[name]
		if !ok {
			style, known := categoryStyles[name]
			if !known {
				style = categoryStyles[categoryOther]
			}
			i = len(out)
			index[name] = i
			out = append(out, EmailCategory{Name: name, Icon: style.icon, Color: style.color})
		}
		out[i].Emails = append(out[i].Emails, e)
	}

	for i := range out {
		sortByTimeDesc(out[i].Emails, func(e store.Email) int64 { return unixMilli(e.ReceivedAt) })
		out[i].Count = len(out[i].Emails)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
