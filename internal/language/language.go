// Package language lists the target languages the assistant can answer in and
// the starter prompts offered for each.
package language

import (
	"strings"
)

// Language is a selectable target language.
type Language struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Default is used when no or an unknown language is requested.
var Default = Language{Label: "English", Value: "english"}

var catalog = []Language{
	{Label: "English", Value: "english"},
	{Label: "Ndebele (isiNdebele)", Value: "ndebele"},
	{Label: "Portuguese (Português)", Value: "portuguese"},
	{Label: "Shona (chiShona)", Value: "shona"},
	{Label: "Swahili (Kiswahili)", Value: "swahili"},
	{Label: "Amharic (አማርኛ)", Value: "amharic"},
	{Label: "Hausa (Harshen Hausa)", Value: "hausa"},
	{Label: "Yoruba (Èdè Yorùbá)", Value: "yoruba"},
	{Label: "Igbo (Asụsụ Igbo)", Value: "igbo"},
	{Label: "Zulu (isiZulu)", Value: "zulu"},
	{Label: "Xhosa (isiXhosa)", Value: "xhosa"},
	{Label: "Afrikaans", Value: "afrikaans"},
	{Label: "Twi (Akan)", Value: "twi"},
	{Label: "Oromo (Afaan Oromoo)", Value: "oromo"},
	{Label: "Somali (Af Soomaali)", Value: "somali"},
	{Label: "Tigrinya (ትግርኛ)", Value: "tigrinya"},
	{Label: "Bambara (Bamanankan)", Value: "bambara"},
	{Label: "Lingala", Value: "lingala"},
	{Label: "Kinyarwanda", Value: "kinyarwanda"},
	{Label: "Wolof", Value: "wolof"},
	{Label: "Malagasy", Value: "malagasy"},
	{Label: "Fulani (Fulfulde)", Value: "fulani"},
}

var commonSuggestions = []string{
	"Hello, how are you?",
	"What's the weather like today?",
	"Tell me about your culture",
	"What are some popular foods in your region?",
	"How do you say 'thank you' in your language?",
}

var suggestions = map[string][]string{
	"english":     {"Hello, how are you?", "Can you help me?", "I'd like to learn about your culture", "What's your favorite food?", "Tell me about yourself"},
	"ndebele":     {"Kunjani?", "Ungangisiza?", "Ngifuna ukufunda isiNdebele"},
	"portuguese":  {"Olá, como está?", "Pode me ajudar?", "Gostaria de aprender sobre a sua cultura", "Qual é a sua comida favorita?", "Fale-me sobre você"},
	"shona":       {"Makadii henyu?", "Mungandibatsirawo here?", "Ndingada kuziva nezvetsika dzechiShona"},
	"swahili":     {"Habari yako?", "Unaweza kunisaidia?", "Ningependa kujifunza Kiswahili"},
	"amharic":     {"ሰላም እንደምን ነህ?", "እባክህ ልትረዳኝ ትችላለህ?", "ስለ ኢትዮጵያ ባህል ንገረኝ"},
	"hausa":       {"Sannu, yaya kake?", "Za ka iya taimaka min?", "Ina son koyon Hausa"},
	"yoruba":      {"Bawo ni?", "Ṣe o le ran mi lọwọ?", "Mo fẹ kọ ede Yoruba"},
	"igbo":        {"Kedu?", "Biko, ị nwere ike inyere m aka?", "Achọrọ m ịmụta asụsụ Igbo"},
	"zulu":        {"Sawubona, unjani?", "Ungangisiza?", "Ngifuna ukufunda isiZulu"},
	"xhosa":       {"Molo, unjani?", "Ungandinceda?", "Ndifuna ukufunda isiXhosa"},
	"afrikaans":   {"Hallo, hoe gaan dit?", "Kan jy my help?", "Ek wil graag Afrikaans leer"},
	"twi":         {"Ɛte sɛn?", "Wobɛtumi aboa me?", "Mepɛ sɛ mesua Twi kasa"},
	"oromo":       {"Akkam jirta?", "Na gargaaruu dandeessaa?", "Afaan Oromoo barachuu barbaada"},
	"somali":      {"Iska waran?", "Ma i caawin kartaa?", "Waxaan rabaa inaan barto Af Soomaali"},
	"tigrinya":    {"ሰላም፣ ከመይ ኣለኻ?", "ክትሕግዘኒ ትኽእል ዶ?", "ትግርኛ ክመሃር እደሊ"},
	"bambara":     {"I ni ce/sogoma", "I bɛ se ka n dɛmɛ wa?", "N b'a fɛ ka Bamanankan kalan"},
	"lingala":     {"Mbote, ozali malamu?", "Okoki kosunga ngai?", "Nalingi koyekola Lingala"},
	"kinyarwanda": {"Muraho, amakuru?", "Washobora kumfasha?", "Ndashaka kwiga Kinyarwanda"},
	"wolof":       {"Na nga def?", "Ndax mën nga ma dimbali?", "Dama bëgg jàng Wolof"},
	"malagasy":    {"Manao ahoana ianao?", "Afaka manampy ahy ve ianao?", "Te-hianatra fiteny Malagasy aho"},
	"fulani":      {"Jam waali?", "A waawi wallitde kam?", "Miɗo yiɗi ekkitaade Fulfulde"},
}

// All returns the language catalog in display order.
func All() []Language {
	out := make([]Language, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a language by value, case-insensitively.
func Lookup(value string) (Language, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, l := range catalog {
		if l.Value == value {
			return l, true
		}
	}
	return Language{}, false
}

// Resolve returns the language for value, falling back to Default.
func Resolve(value string) Language {
	if l, ok := Lookup(value); ok {
		return l
	}
	return Default
}

// Suggestions returns starter prompts for a language, or generic ones.
func Suggestions(value string) []string {
	list, ok := suggestions[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		list = commonSuggestions
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
