package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

// assertJSONHidden checks that a field is excluded from JSON output.
func assertJSONHidden(t *testing.T, typ reflect.Type, fieldName string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	if tag := f.Tag.Get("json"); tag != "-" {
		t.Errorf("%s.%s json tag = %q, want \"-\"", typ.Name(), fieldName, tag)
	}
}

func TestUser_Fields(t *testing.T) {
	typ := reflect.TypeOf(User{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Email", "uniqueIndex")
	assertGormTag(t, typ, "Email", "not null")
	assertGormTag(t, typ, "RiskLevel", "default:moderate")
	assertGormTag(t, typ, "InvestmentGoals", "type:text")
	assertJSONHidden(t, typ, "PasswordHash")
}

func TestSession_Fields(t *testing.T) {
	typ := reflect.TypeOf(Session{})

	assertGormTag(t, typ, "Token", "primaryKey")
	assertGormTag(t, typ, "UserID", "index")
	assertFieldType(t, typ, "ExpiresAt", "time.Time")
}

func TestWallet_Fields(t *testing.T) {
	typ := reflect.TypeOf(Wallet{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "Kind", "size:16")
	assertGormTag(t, typ, "Primary", "column:is_primary")
	assertGormTag(t, typ, "Primary", "default:false")

	assertFieldType(t, typ, "Balance", "float64")
	assertFieldType(t, typ, "LastSynced", "*time.Time")

	assertJSONHidden(t, typ, "PrivateKey")
	assertJSONHidden(t, typ, "Mnemonic")
}

func TestNFT_Fields(t *testing.T) {
	typ := reflect.TypeOf(NFT{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "WalletID", "index")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Attributes", "type:text")
}

func TestFeedback_Fields(t *testing.T) {
	typ := reflect.TypeOf(Feedback{})

	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Approved", "default:false")
	assertFieldType(t, typ, "Rating", "int")
}

func TestAgentMessage_Fields(t *testing.T) {
	typ := reflect.TypeOf(AgentMessage{})

	assertGormTag(t, typ, "AgentID", "index")
	assertGormTag(t, typ, "Kind", "not null")
	assertGormTag(t, typ, "Payload", "type:text")
	assertGormTag(t, typ, "CreatedAt", "index")
	assertGormTag(t, typ, "UserID", "index")
	assertJSONHidden(t, typ, "Payload")
}

func TestAgentMessage_MarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"object", `{"reply":"hi","handoffs":["defi-strategist"]}`, `{"reply":"hi","handoffs":["defi-strategist"]}`},
		{"invalid", "not json", "null"},
		{"empty", "", "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := AgentMessage{ID: "m-1", AgentID: "nft-artisan", UserID: "u1", Kind: "completion", Payload: tt.payload}
			raw, err := json.Marshal(msg)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got map[string]json.RawMessage
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if string(got["payload"]) != tt.want {
				t.Errorf("payload = %s, want %s", got["payload"], tt.want)
			}
			for _, key := range []string{"id", "agent_id", "user_id", "kind", "content", "created_at"} {
				if _, ok := got[key]; !ok {
					t.Errorf("missing key %q in %s", key, raw)
				}
			}
			if _, ok := got["AgentID"]; ok {
				t.Errorf("Go field name leaked into %s", raw)
			}
		})
	}
}

func TestCoordination_Fields(t *testing.T) {
	typ := reflect.TypeOf(Coordination{})

	assertGormTag(t, typ, "ToAgent", "index")
	assertGormTag(t, typ, "Status", "default:pending")
	assertGormTag(t, typ, "Status", "index")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
	assertGormTag(t, typ, "UserID", "index")
}

func TestCoordination_JSONKeys(t *testing.T) {
	raw, err := json.Marshal(Coordination{ID: "c-1", FromAgent: "nft-artisan", ToAgent: "defi-strategist", Status: "pending"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["from_agent"] != "nft-artisan" || got["to_agent"] != "defi-strategist" {
		t.Errorf("unexpected keys in %s", raw)
	}
	if _, ok := got["FromAgent"]; ok {
		t.Errorf("Go field name leaked into %s", raw)
	}
}

func TestUser_GoalsRoundTrip(t *testing.T) {
	var u User
	if u.Goals() != nil {
		t.Errorf("empty user Goals() = %v, want nil", u.Goals())
	}
	u.SetGoals([]string{"income", "growth"})
	if u.InvestmentGoals != `["income","growth"]` {
		t.Errorf("InvestmentGoals = %q", u.InvestmentGoals)
	}
	if got := u.Goals(); len(got) != 2 || got[1] != "growth" {
		t.Errorf("Goals() = %v", got)
	}
	u.InvestmentGoals = "not json"
	if u.Goals() != nil {
		t.Error("malformed goals should decode as nil")
	}
	u.SetGoals(nil)
	if u.InvestmentGoals != "" {
		t.Errorf("SetGoals(nil) left %q", u.InvestmentGoals)
	}
}

func TestValidRiskLevel(t *testing.T) {
	for _, level := range []string{RiskConservative, RiskModerate, RiskAggressive} {
		if !ValidRiskLevel(level) {
			t.Errorf("ValidRiskLevel(%q) = false", level)
		}
	}
	for _, level := range []string{"", "yolo", "Moderate"} {
		if ValidRiskLevel(level) {
			t.Errorf("ValidRiskLevel(%q) = true", level)
		}
	}
}
