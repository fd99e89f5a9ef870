package tags

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/models"
)

func testParticipants(ids ...string) []models.Participant {
	ps := make([]models.Participant, len(ids))
	for i, id := range ids {
		ps[i] = models.Participant{ID: id, DisplayName: id}
	}
	return ps
}

func testItems() []models.ReceiptItem {
	return []models.ReceiptItem{
		{Index: 0, Name: "Pizza", LineTotal: decimal.NewFromInt(300), Tags: []string{"A", "B"}},
		{Index: 1, Name: "Salad", LineTotal: decimal.NewFromInt(120)},
	}
}

func TestToggle(t *testing.T) {
	reg := New(testItems(), testParticipants("A", "B", "C"))

	tests := []struct {
		name          string
		itemIndex     int
		participantID string
		want          Action
		wantErr       error
	}{
		{name: "tagged participant removes", itemIndex: 0, participantID: "A", want: ActionRemove},
		{name: "untagged participant adds", itemIndex: 0, participantID: "C", want: ActionAdd},
		{name: "empty item adds", itemIndex: 1, participantID: "B", want: ActionAdd},
		{name: "negative index", itemIndex: -1, participantID: "A", wantErr: ErrInvalidIndex},
		{name: "index past end", itemIndex: 2, participantID: "A", wantErr: ErrInvalidIndex},
		{name: "unknown participant", itemIndex: 0, participantID: "Z", wantErr: ErrUnknownParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Toggle(tt.itemIndex, tt.participantID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Toggle() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Toggle() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Toggle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToggleDoesNotMutate(t *testing.T) {
	items := testItems()
	reg := New(items, testParticipants("A", "B", "C"))

	if _, err := reg.Toggle(0, "C"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	got, _ := reg.Tags(0)
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("tags after Toggle = %v, want [A B]", got)
	}
}

func TestApplyLeavesOriginalUntouched(t *testing.T) {
	reg := New(testItems(), testParticipants("A", "B", "C"))

	next, err := reg.Apply(0, "C", ActionAdd)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	before, _ := reg.Tags(0)
	after, _ := next.Tags(0)
	if !reflect.DeepEqual(before, []string{"A", "B"}) {
		t.Errorf("original registry changed: %v", before)
	}
	if !reflect.DeepEqual(after, []string{"A", "B", "C"}) {
		t.Errorf("applied registry = %v, want [A B C]", after)
	}
}

func TestApplyIsIdempotentForRepeatedAction(t *testing.T) {
	reg := New(testItems(), testParticipants("A", "B"))

	added, _ := reg.Apply(0, "A", ActionAdd)
	tags, _ := added.Tags(0)
	if len(tags) != 2 {
		t.Errorf("adding a present tag changed the set: %v", tags)
	}

	removed, _ := reg.Apply(1, "A", ActionRemove)
	tags, _ = removed.Tags(1)
	if len(tags) != 0 {
		t.Errorf("removing an absent tag changed the set: %v", tags)
	}
}

func TestApplyRejectsBadAction(t *testing.T) {
	reg := New(testItems(), testParticipants("A"))
	if _, err := reg.Apply(0, "A", Action("flip")); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Apply() error = %v, want ErrInvalidAction", err)
	}
}

func TestReplaceIsWholesale(t *testing.T) {
	reg := New(testItems(), testParticipants("A", "B", "C"))

	// Locally C has been added, but the server reports only B on the item.
	local, _ := reg.Apply(0, "C", ActionAdd)
	server := testItems()
	server[0].Tags = []string{"B"}

	replaced := local.Replace(server)
	got, _ := replaced.Tags(0)
	if !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Replace() tags = %v, want [B]", got)
	}

	// Mutating the source slice afterwards must not leak into the registry.
	server[0].Tags[0] = "X"
	got, _ = replaced.Tags(0)
	if got[0] != "B" {
		t.Errorf("registry shares memory with input: %v", got)
	}
}

func TestNewCollapsesDuplicateTags(t *testing.T) {
	items := testItems()
	items[0].Tags = []string{"A", "A", "B"}
	reg := New(items, testParticipants("A", "B"))

	got, _ := reg.Tags(0)
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("tags = %v, want [A B]", got)
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"add", "remove"} {
		if _, err := ParseAction(s); err != nil {
			t.Errorf("ParseAction(%q) error: %v", s, err)
		}
	}
	if _, err := ParseAction("toggle"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("ParseAction(toggle) error = %v, want ErrInvalidAction", err)
	}
}

// TestDoubleToggleRestores checks that toggling twice, each time acting on the
// previous result, gives back the original tag set.
func TestDoubleToggleRestores(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E"}
	participants := testParticipants(ids...)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("toggle; toggle is the identity", prop.ForAll(
		func(mask []bool, who int) bool {
			var tagged []string
			for i, on := range mask {
				if on && i < len(ids) {
					tagged = append(tagged, ids[i])
				}
			}
			items := []models.ReceiptItem{{Index: 0, Name: "Item", LineTotal: decimal.NewFromInt(10), Tags: tagged}}
			reg := New(items, participants)
			pid := ids[who]

			first, err := reg.Toggle(0, pid)
			if err != nil {
				return false
			}
			once, err := reg.Apply(0, pid, first)
			if err != nil {
				return false
			}
			second, err := once.Toggle(0, pid)
			if err != nil || second == first {
				return false
			}
			twice, err := once.Apply(0, pid, second)
			if err != nil {
				return false
			}

			want, _ := reg.Tags(0)
			got, _ := twice.Tags(0)
			sort.Strings(want)
			sort.Strings(got)
			return len(want) == len(got) && (len(want) == 0 || reflect.DeepEqual(want, got))
		},
		gen.SliceOfN(len(ids), gen.Bool()),
		gen.IntRange(0, len(ids)-1),
	))

	properties.TestingRun(t)
}
