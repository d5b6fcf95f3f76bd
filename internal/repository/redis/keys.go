package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "courtbook:v1"

func KeyCourtList(activeOnly bool) string {
	return fmt.Sprintf("%s:courts:list:%t", ns, activeOnly)
}

func KeyCourt(id uuid.UUID) string {
	return fmt.Sprintf("%s:court:%s", ns, id)
}

func KeyEquipmentList(activeOnly bool) string {
	return fmt.Sprintf("%s:equipment:list:%t", ns, activeOnly)
}

func KeyEquipment(id uuid.UUID) string {
	return fmt.Sprintf("%s:equipment:%s", ns, id)
}

func KeyCoachList(activeOnly bool) string {
	return fmt.Sprintf("%s:coaches:list:%t", ns, activeOnly)
}

func KeyCoach(id uuid.UUID) string {
	return fmt.Sprintf("%s:coach:%s", ns, id)
}

// KeyCourtSchedule addresses the busy slots of one court on one facility-local
// date ("2006-01-02").
func KeyCourtSchedule(courtID uuid.UUID, date string) string {
	return fmt.Sprintf("%s:court:%s:schedule:%s", ns, courtID, date)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelCourtsChanged() string {
	return ns + ":courts:changed"
}
