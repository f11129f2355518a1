package accesspolicy_test

import (
	"testing"

	"github.com/dalemusser/meraki/internal/app/policy/accesspolicy"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		position string
		want     accesspolicy.Level
	}{
		{"advisor", accesspolicy.Elevated},
		{"President", accesspolicy.Elevated},
		{"  VICE-PRESIDENT ", accesspolicy.Elevated},
		{"member", accesspolicy.Standard},
		{"", accesspolicy.Standard},
		{"vice president", accesspolicy.Standard},
		{"presidential", accesspolicy.Standard},
		{"treasurer", accesspolicy.Standard},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			if got := accesspolicy.Classify(tt.position); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.position, got, tt.want)
			}
		})
	}
}

func TestParsePosition(t *testing.T) {
	p, ok := accesspolicy.ParsePosition(" Advisor")
	if !ok || p != accesspolicy.Advisor {
		t.Errorf("ParsePosition(Advisor) = %q, %v", p, ok)
	}
	p, ok = accesspolicy.ParsePosition("Member")
	if ok {
		t.Errorf("member should not parse as elevated, got %q", p)
	}
}

func TestCanListAllUsers(t *testing.T) {
	if accesspolicy.CanListAllUsers(models.User{Position: "member"}) {
		t.Error("member must not list all users")
	}
	if !accesspolicy.CanListAllUsers(models.User{Position: "president"}) {
		t.Error("president must list all users")
	}
}

func TestCanResetPasswordFor(t *testing.T) {
	self := models.User{ID: primitive.NewObjectID(), Position: "member"}
	other := models.User{ID: primitive.NewObjectID(), Position: "member"}
	advisor := models.User{ID: primitive.NewObjectID(), Position: "advisor"}

	if !accesspolicy.CanResetPasswordFor(self, self) {
		t.Error("user should be able to reset their own password")
	}
	if accesspolicy.CanResetPasswordFor(self, other) {
		t.Error("member must not reset another user's password")
	}
	if !accesspolicy.CanResetPasswordFor(advisor, other) {
		t.Error("advisor should reset another user's password")
	}
}

func TestLevelString(t *testing.T) {
	if accesspolicy.Elevated.String() != "elevated" || accesspolicy.Standard.String() != "standard" {
		t.Error("unexpected Level strings")
	}
}
