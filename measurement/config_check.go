package measurement

import (
	"fmt"
	"sort"
	"strings"

	"scan-analysis/models"

	"github.com/beevik/etree"
)

// ProcessDomainResult derives check results from a raw probe record so that
// clusters can be built without a separate check pass. Returns nil when no
// mechanism yielded a parsable config.
func ProcessDomainResult(obj *models.DomainResult) *models.DomainCheckResult {
	var autodiscoverConfigs []*models.MethodConfig
	var autoconfigConfigs []*models.MethodConfig

	for _, entry := range obj.Autodiscover {
		if entry.Config == "" || strings.HasPrefix(entry.Config, "Bad") || strings.HasPrefix(entry.Config, "Errorcode") || strings.HasPrefix(entry.Config, "Non-valid") {
			continue
		}
		if r, _ := ParseAutodiscoverConfig(entry.Config); r != nil {
			autodiscoverConfigs = append(autodiscoverConfigs, r)
		}
	}
	for _, entry := range obj.Autoconfig {
		if entry.Config == "" {
			continue
		}
		if r, _ := ParseAutoconfigConfig(entry.Config); r != nil {
			autoconfigConfigs = append(autoconfigConfigs, r)
		}
	}
	srvConfig := ParseSRVConfig(&obj.SRV)

	if len(autodiscoverConfigs) == 0 && len(autoconfigConfigs) == 0 && srvConfig == nil {
		return nil
	}

	autodiscoverConsistent, finalAutodiscover := dedupeConfigs(autodiscoverConfigs)
	autoconfigConsistent, finalAutoconfig := dedupeConfigs(autoconfigConfigs)

	return &models.DomainCheckResult{
		Domain:                   obj.Domain,
		AutodiscoverCheckResult:  models.List(finalAutodiscover...),
		AutoconfigCheckResult:    models.List(finalAutoconfig...),
		SRVCheckResult:           models.Single(srvConfig),
		AutodiscoverInconsistent: !autodiscoverConsistent,
		AutoconfigInconsistent:   !autoconfigConsistent,
		Inconsistent:             !autodiscoverConsistent || !autoconfigConsistent,
	}
}

// dedupeConfigs keeps one config per distinct protocol set. Consistent means
// at most one distinct set was seen.
func dedupeConfigs(configs []*models.MethodConfig) (bool, []*models.MethodConfig) {
	seen := make(map[string]bool)
	var final []*models.MethodConfig
	for _, cfg := range configs {
		key := protocolKey(cfg.Protocols)
		if seen[key] {
			continue
		}
		seen[key] = true
		final = append(final, cfg)
	}
	return len(final) <= 1, final
}

// 只比较关键字段
func protocolKey(protocols []*models.ProtocolInfo) string {
	parts := make([]string, 0, len(protocols))
	for _, p := range protocols {
		if p == nil {
			continue
		}
		parts = append(parts, strings.Join([]string{p.Type, p.Server, string(p.Port), p.SSL}, "|"))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func childText(elem *etree.Element, tag string) string {
	if child := elem.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

// ParseAutodiscoverConfig extracts the <Protocol> entries of an Autodiscover
// (POX) response.
func ParseAutodiscoverConfig(config string) (*models.MethodConfig, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(config); err != nil {
		return nil, err
	}
	invalid := func(reason string) (*models.MethodConfig, error) {
		return &models.MethodConfig{Method: "Autodiscover", OverallCheck: "Invalid, " + reason}, fmt.Errorf("autodiscover: %s", reason)
	}

	root := doc.SelectElement("Autodiscover")
	if root == nil {
		return invalid("root element <Autodiscover> lost")
	}
	responseElem := root.SelectElement("Response")
	if responseElem == nil {
		return invalid("<Response> element lost")
	}
	accountElem := responseElem.SelectElement("Account")
	if accountElem == nil {
		return invalid("missing <Account> element")
	}
	if childText(accountElem, "AccountType") != "email" {
		return invalid("<AccountType> must be 'email'")
	}
	if childText(accountElem, "Action") != "settings" {
		return invalid("<Action> must be 'settings'")
	}

	var protocols []*models.ProtocolInfo
	for _, protocolElem := range accountElem.SelectElements("Protocol") {
		protocol := &models.ProtocolInfo{
			Type:           childText(protocolElem, "Type"),
			Server:         childText(protocolElem, "Server"),
			Port:           models.FlexString(childText(protocolElem, "Port")),
			DomainRequired: childText(protocolElem, "DomainRequired"),
			SPA:            childText(protocolElem, "SPA"),
			SSL:            childText(protocolElem, "SSL"),
			AuthRequired:   childText(protocolElem, "AuthRequired"),
			Encryption:     childText(protocolElem, "Encryption"),
			SingleCheck:    "Valid",
		}
		if protocol.Type == "" {
			if attr := protocolElem.SelectAttr("Type"); attr != nil {
				protocol.Type = attr.Value
			} else {
				protocol.SingleCheck = "Invalid, no Type attribute in <Protocol> element nor <Type> element"
			}
		}
		switch protocol.Type {
		case "IMAP", "POP3", "SMTP", "EXCH", "EXPR", "EXHTTP":
			if protocol.Server == "" {
				protocol.SingleCheck = "Invalid, no valid Server"
			}
		}
		if protocol.Encryption != "" {
			switch protocol.Encryption {
			case "None", "SSL", "TLS", "Auto":
			default:
				protocol.SingleCheck = fmt.Sprintf("Invalid, Encryption method %s, not supposed to appear", protocol.Encryption)
			}
			protocol.SSL = ""
		} else if protocol.SSL == "" {
			protocol.SSL = "default(on)"
		}
		protocols = append(protocols, protocol)
	}

	// Autodiscover 有一个协议不对就都不对
	finalStatus := "Valid"
	for _, p := range protocols {
		if p.SingleCheck != "Valid" {
			finalStatus = "Invalid"
			break
		}
	}
	return &models.MethodConfig{Method: "Autodiscover", Protocols: protocols, OverallCheck: finalStatus}, nil
}

// expected port per (type, socketType) for Autoconfig servers
var autoconfigPorts = map[string]map[string][]string{
	"imap": {"SSL": {"993"}, "TLS": {"993"}, "STARTTLS": {"143"}},
	"pop3": {"SSL": {"995"}, "TLS": {"995"}, "STARTTLS": {"110"}},
	"smtp": {"SSL": {"465"}, "TLS": {"465"}, "STARTTLS": {"25", "2525", "587"}},
}

func checkAutoconfigServer(protocol *models.ProtocolInfo, auths []string) string {
	if len(auths) == 1 && auths[0] == "OAuth2" {
		return "Invalid, OAuth2 must have fallback authmethod"
	}
	ports, ok := autoconfigPorts[protocol.Type]
	if !ok {
		return fmt.Sprintf("Invalid, unexpected server type %q", protocol.Type)
	}
	if protocol.SSL == "plain" {
		if len(auths) == 1 && auths[0] == "password-cleartext" {
			return "Invalid, only plain method is not supposed"
		}
		return "Valid"
	}
	want, ok := ports[protocol.SSL]
	if !ok {
		return fmt.Sprintf("Invalid, socketType %s not supposed", protocol.SSL)
	}
	for _, p := range want {
		if string(protocol.Port) == p {
			return "Valid"
		}
	}
	return fmt.Sprintf("Invalid, supposed %s-%s-%s", strings.ToUpper(protocol.Type), protocol.SSL, want[len(want)-1])
}

// ParseAutoconfigConfig extracts incoming and outgoing servers of a
// Thunderbird-style clientConfig document.
func ParseAutoconfigConfig(config string) (*models.MethodConfig, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(config); err != nil {
		return nil, err
	}
	root := doc.SelectElement("clientConfig")
	if root == nil {
		return &models.MethodConfig{Method: "Autoconfig", OverallCheck: "Invalid, root element <clientConfig> lost"},
			fmt.Errorf("missing root element <clientConfig>")
	}
	emailProviderElem := root.SelectElement("emailProvider")
	if emailProviderElem == nil {
		return &models.MethodConfig{Method: "Autoconfig", OverallCheck: "Invalid, <emailProvider> element lost"},
			fmt.Errorf("missing <emailProvider> element")
	}

	var protocols []*models.ProtocolInfo
	// incoming and outgoing each need one valid server
	valid := map[string]bool{}
	for _, tag := range []string{"incomingServer", "outgoingServer"} {
		for _, serverElem := range emailProviderElem.SelectElements(tag) {
			protocol := &models.ProtocolInfo{
				Server: childText(serverElem, "hostname"),
				Port:   models.FlexString(childText(serverElem, "port")),
				SSL:    childText(serverElem, "socketType"),
			}
			if attr := serverElem.SelectAttr("type"); attr != nil {
				protocol.Type = attr.Value
			}
			var auths []string
			for _, authElem := range serverElem.SelectElements("authentication") {
				auths = append(auths, strings.TrimSpace(authElem.Text()))
			}
			if len(auths) != 0 {
				protocol.Encryption = strings.Join(auths, ", ")
			}
			protocol.SingleCheck = checkAutoconfigServer(protocol, auths)
			if (tag == "outgoingServer") != (protocol.Type == "smtp") && protocol.SingleCheck == "Valid" {
				protocol.SingleCheck = "Invalid, server type does not match its direction"
			}
			if protocol.SingleCheck == "Valid" {
				valid[tag] = true
			}
			protocols = append(protocols, protocol)
		}
	}

	finalStatus := "Invalid"
	if valid["incomingServer"] && valid["outgoingServer"] {
		finalStatus = "Valid"
	}
	return &models.MethodConfig{Method: "Autoconfig", Protocols: protocols, OverallCheck: finalStatus}, nil
}

// 根据 SRV 服务名称获取协议类型
func getServiceType(service string) string {
	switch {
	case strings.HasPrefix(service, "_imaps"):
		return "IMAPS"
	case strings.HasPrefix(service, "_imap"):
		return "IMAP"
	case strings.HasPrefix(service, "_pop3s"):
		return "POP3S"
	case strings.HasPrefix(service, "_pop3"):
		return "POP3"
	case strings.HasPrefix(service, "_submissions"):
		return "SMTPS"
	case strings.HasPrefix(service, "_submission"):
		return "SMTP"
	default:
		return "Unknown"
	}
}

var srvPorts = map[string]string{
	"IMAPS": "993",
	"IMAP":  "143",
	"POP3S": "995",
	"POP3":  "110",
	"SMTPS": "465",
	"SMTP":  "587",
}

// ParseSRVConfig converts the recv/send SRV records into protocols. SRV is
// valid when any single record is. Returns nil when there are no records.
func ParseSRVConfig(srv *models.SRVResult) *models.MethodConfig {
	if len(srv.RecvRecords) == 0 && len(srv.SendRecords) == 0 {
		return nil
	}
	var protocols []*models.ProtocolInfo
	finalStatus := "Invalid"
	for _, records := range [][]models.SRVRecord{srv.RecvRecords, srv.SendRecords} {
		for _, rec := range records {
			if rec.Target == "." || rec.Target == "" {
				continue // service explicitly not offered
			}
			protocol := &models.ProtocolInfo{
				Type:        getServiceType(rec.Service),
				Server:      rec.Target,
				Port:        models.FlexString(fmt.Sprintf("%d", rec.Port)),
				Priority:    fmt.Sprintf("%d", rec.Priority),
				Weight:      fmt.Sprintf("%d", rec.Weight),
				SingleCheck: "Valid",
			}
			switch want, known := srvPorts[protocol.Type]; {
			case !known:
				protocol.SingleCheck = "Invalid, unknown protocol type"
			case protocol.Type == "SMTP" && protocol.Port == "25":
				protocol.SingleCheck = "Invalid, cleartext SMTP not supposed"
			case string(protocol.Port) != want:
				protocol.SingleCheck = fmt.Sprintf("Invalid, supposed %s-%s", strings.ToLower(protocol.Type), want)
			}
			if protocol.SingleCheck == "Valid" {
				finalStatus = "Valid"
			}
			protocols = append(protocols, protocol)
		}
	}
	return &models.MethodConfig{Method: "SRV", Protocols: protocols, OverallCheck: finalStatus}
}
