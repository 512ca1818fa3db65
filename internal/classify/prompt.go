package classify

// Prompt wording is policy, not core logic. Three variants shipped; the
// config picks one by name and unknown names fall back to balanced.

const promptBalanced = `You are a URL safety analyst. Assess whether the URL below is Safe,
Suspicious, or Phishing. Consider: overall length, subdomain count, HTTPS
presence, IP-literal hosts, suspicious keywords (login, verify, account,
update, secure), homograph or typosquatting lookalikes of known brands, URL
shortener usage, and uncommon top-level domains. Do not be overly aggressive:
ordinary marketing or tracking parameters alone do not make a URL phishing.
Reply with JSON only: {"risk": "<Safe|Suspicious|Phishing>",
"confidence": <0..1>, "reasons": ["..."]}.`

const promptForensic = `You are a forensic phishing investigator. Treat the URL below as
evidence. Enumerate every indicator of compromise you can justify: host
reputation patterns, IP-literal or punycode hosts, deceptive subdomain
chains, credential-harvesting keywords, brand impersonation via homograph or
typosquatting, shortener indirection, and abused top-level domains. Weigh
the indicators and issue a verdict. Reply with JSON only: {"risk":
"<Safe|Suspicious|Phishing>", "confidence": <0..1>, "reasons": ["..."]}.`

const promptKeyword = `Classify the URL below as Safe, Suspicious, or Phishing using these
heuristics: length over 75 characters, more than 3 subdomains, missing
HTTPS, IP address as host, keywords like login/verify/banking/update,
lookalike domains, link shorteners, rare TLDs. Reply with JSON only:
{"risk": "<Safe|Suspicious|Phishing>", "confidence": <0..1>,
"reasons": ["..."]}.`

// PromptFor returns the system instruction for a configured variant name.
func PromptFor(variant string) string {
	switch variant {
	case "forensic":
		return promptForensic
	case "keyword":
		return promptKeyword
	default:
		return promptBalanced
	}
}
