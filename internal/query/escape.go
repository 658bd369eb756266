package query

import "strings"

// EscapeODataString экранирует значение для строкового литерала OData:
// одинарная кавычка удваивается.
func EscapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// simpleQueryEscaper экранирует операторы простого синтаксиса Azure AI Search.
var simpleQueryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`&`, `\&`,
	`|`, `\|`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`"`, `\"`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`/`, `\/`,
	`'`, `\'`,
)

// EscapeSimpleQuery экранирует токен для простого синтаксиса запроса
// Azure AI Search (searchMode=all, queryType=simple).
func EscapeSimpleQuery(s string) string {
	return simpleQueryEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapeLike экранирует метасимволы LIKE (%, _ и обратный слэш).
// PostgreSQL использует обратный слэш как символ экранирования по умолчанию.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// redisTokenEscaper экранирует пунктуацию, которую токенизатор
// RediSearch считает разделителем или оператором.
var redisTokenEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`,`, `\,`,
	`.`, `\.`,
	`:`, `\:`,
	`/`, `\/`,
	`&`, `\&`,
	`#`, `\#`,
	`?`, `\?`,
)

// EscapeRedisToken экранирует токен полнотекстового запроса RediSearch.
func EscapeRedisToken(s string) string {
	return redisTokenEscaper.Replace(s)
}

var redisTagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

// EscapeRedisTag экранирует значение TAG-поля RediSearch.
func EscapeRedisTag(s string) string {
	return redisTagEscaper.Replace(s)
}
