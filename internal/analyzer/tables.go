// internal/analyzer/tables.go
package analyzer

import "banking-assistant/internal/models"

// TablesVersion identifies the keyword data below. Bump it whenever keywords
// change so analysis results can be traced to the tables that produced them.
const TablesVersion = "2024.05.1"

// SubtypeTable lists keywords selecting one location subtype.
type SubtypeTable struct {
	Subtype  string
	Keywords map[models.Language][]string
}

// IntentTable lists the generic keywords of one intent. A generic hit scores 1,
// a subtype hit scores 2 toward the owning intent.
type IntentTable struct {
	Kind     models.IntentKind
	Keywords map[models.Language][]string
	Subtypes []SubtypeTable
}

// DefaultTables is ordered; on equal scores the earlier table wins.
var DefaultTables = []IntentTable{
	{
		Kind: models.IntentLocation,
		Keywords: map[models.Language][]string{
			models.LanguageEnglish:     {"where", "nearest", "closest", "near", "location", "address", "directions", "how to get", "find"},
			models.LanguageAzerbaijani: {"harada", "ən yaxın", "yaxın", "ünvan", "yerləşir", "necə gedim", "yaxınlığında"},
			models.LanguageRussian:     {"где", "ближайш", "рядом", "адрес", "находится", "как добраться", "возле", "около"},
		},
		Subtypes: []SubtypeTable{
			{
				Subtype: models.SubtypeATM,
				Keywords: map[models.Language][]string{
					models.LanguageEnglish:     {"atm", "cash machine", "cashpoint"},
					models.LanguageAzerbaijani: {"bankomat", "atm"},
					models.LanguageRussian:     {"банкомат"},
				},
			},
			{
				Subtype: models.SubtypeBranch,
				Keywords: map[models.Language][]string{
					models.LanguageEnglish:     {"branch", "office"},
					models.LanguageAzerbaijani: {"filial", "şöbə"},
					models.LanguageRussian:     {"филиал", "отделени", "офис"},
				},
			},
			{
				Subtype: models.SubtypeCashIn,
				Keywords: map[models.Language][]string{
					models.LanguageEnglish:     {"cash-in", "cash in", "deposit machine"},
					models.LanguageAzerbaijani: {"nağd mədaxil", "cash-in"},
					models.LanguageRussian:     {"кэш-ин", "терминал пополнения"},
				},
			},
			{
				Subtype: models.SubtypePaymentTerminal,
				Keywords: map[models.Language][]string{
					models.LanguageEnglish:     {"payment terminal", "terminal", "kiosk"},
					models.LanguageAzerbaijani: {"ödəniş terminalı", "terminal"},
					models.LanguageRussian:     {"терминал оплаты", "платежный терминал"},
				},
			},
			{
				Subtype: models.SubtypeExchange,
				Keywords: map[models.Language][]string{
					models.LanguageEnglish:     {"exchange office", "currency exchange", "exchange point"},
					models.LanguageAzerbaijani: {"valyuta mübadiləsi", "mübadilə məntəqəsi"},
					models.LanguageRussian:     {"обменник", "обмен валют", "пункт обмена"},
				},
			},
		},
	},
	{
		Kind: models.IntentCurrency,
		Keywords: map[models.Language][]string{
			models.LanguageEnglish:     {"exchange rate", "rate", "currency", "dollar", "euro", "ruble", "convert", "usd", "eur"},
			models.LanguageAzerbaijani: {"məzənnə", "valyuta", "dollar", "avro", "manat", "rubl"},
			models.LanguageRussian:     {"курс", "валют", "доллар", "евро", "рубл", "манат"},
		},
	},
	{
		Kind: models.IntentService,
		Keywords: map[models.Language][]string{
			models.LanguageEnglish:     {"account", "card", "loan", "credit", "deposit", "transfer", "mortgage", "interest"},
			models.LanguageAzerbaijani: {"hesab", "kart", "kredit", "depozit", "köçürmə", "ipoteka", "faiz"},
			models.LanguageRussian:     {"счет", "счёт", "карт", "кредит", "вклад", "депозит", "перевод", "ипотек"},
		},
	},
	{
		Kind: models.IntentSupport,
		Keywords: map[models.Language][]string{
			models.LanguageEnglish:     {"help", "problem", "issue", "blocked", "lost", "stolen", "complaint", "support", "not working", "contact"},
			models.LanguageAzerbaijani: {"kömək", "problem", "bloklan", "itirdim", "oğurlan", "şikayət", "dəstək", "işləmir", "əlaqə"},
			models.LanguageRussian:     {"помощ", "помогите", "проблем", "заблокир", "потерял", "украл", "жалоб", "поддержк", "не работает"},
		},
	},
}

// languageOrder fixes the iteration order over keyword maps.
var languageOrder = models.SupportedLanguages
