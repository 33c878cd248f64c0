// internal/app/features/workgroups/types.go
package workgroups

import (
	"time"

	"github.com/dalemusser/mdregistry/internal/app/registry"
	"github.com/dalemusser/mdregistry/internal/app/system/htmlsanitize"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/app/system/slug"
	"github.com/dalemusser/mdregistry/internal/app/system/sortopts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// workgroupView is a workgroup plus its canonical URL. Definition is
// returned as submitted; DefinitionHTML is the sanitized rendering.
type workgroupView struct {
	models.Workgroup
	DefinitionHTML string `json:"definition_html"`
	Slug           string `json:"slug"`
	URL            string `json:"url"`
}

func canonicalURL(wg models.Workgroup) string {
	s := slug.Make(wg.Name)
	if s == "" {
		return "/workgroups/" + wg.ID.Hex()
	}
	return "/workgroups/" + wg.ID.Hex() + "/" + s
}

func newWorkgroupView(wg models.Workgroup) workgroupView {
	return workgroupView{
		Workgroup:      wg,
		DefinitionHTML: htmlsanitize.PrepareForDisplay(wg.Definition),
		Slug:           slug.Make(wg.Name),
		URL:            canonicalURL(wg),
	}
}

type listView struct {
	Filter     string          `json:"filter"`
	Workgroups []workgroupView `json:"workgroups"`
	Page       paging.Page     `json:"page"`
	Range      paging.Range    `json:"range"`
}

func newListView(p registry.WorkgroupPage) listView {
	out := make([]workgroupView, len(p.Workgroups))
	for i, wg := range p.Workgroups {
		out[i] = newWorkgroupView(wg)
	}
	return listView{
		Filter:     p.Filter,
		Workgroups: out,
		Page:       p.Page,
		Range:      paging.ComputeRange(p.Page.Page, p.Page.PageSize, len(out)),
	}
}

type overviewView struct {
	Workgroup workgroupView         `json:"workgroup"`
	MyRoles   []string              `json:"my_roles"`
	Counts    []models.StatusCount  `json:"status_counts"`
	Recent    []models.MetadataItem `json:"recent_items"`
}

func newOverviewView(ov registry.Overview) overviewView {
	counts := ov.Counts
	if counts == nil {
		counts = []models.StatusCount{}
	}
	recent := ov.Recent
	if recent == nil {
		recent = []models.MetadataItem{}
	}
	return overviewView{
		Workgroup: newWorkgroupView(ov.Workgroup),
		MyRoles:   roleKeys(ov.Roles),
		Counts:    counts,
		Recent:    recent,
	}
}

type sortView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type itemsView struct {
	Workgroup   workgroupView         `json:"workgroup"`
	Sort        string                `json:"sort"`
	SortOptions []sortView            `json:"sort_options"`
	Items       []models.MetadataItem `json:"items"`
	Page        paging.Page           `json:"page"`
	Range       paging.Range          `json:"range"`
}

func newItemsView(p registry.ItemPage) itemsView {
	opts := sortopts.All()
	sv := make([]sortView, len(opts))
	for i, o := range opts {
		sv[i] = sortView{Key: o.Key, Label: o.Label}
	}
	return itemsView{
		Workgroup:   newWorkgroupView(p.Workgroup),
		Sort:        p.Sort.Key,
		SortOptions: sv,
		Items:       p.Items,
		Page:        p.Page,
		Range:       paging.ComputeRange(p.Page.Page, p.Page.PageSize, len(p.Items)),
	}
}

type memberView struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	RoleLabels []string `json:"role_labels"`
}

func newMemberViews(ms []models.MemberRoles) []memberView {
	out := make([]memberView, len(ms))
	for i, m := range ms {
		out[i] = memberView{
			UserID:     m.User.ID.Hex(),
			Name:       m.User.FullName,
			Email:      m.User.Email,
			Roles:      roleKeys(m.Roles),
			RoleLabels: m.Roles.Labels(),
		}
	}
	return out
}

func roleKeys(s roles.Set) []string {
	rs := s.Roles()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

type historyEntryView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	UserName      string            `json:"user_name,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type historyView struct {
	Workgroup workgroupView      `json:"workgroup"`
	Events    []historyEntryView `json:"events"`
	Page      paging.Page        `json:"page"`
	Range     paging.Range       `json:"range"`
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

func newHistoryView(p registry.HistoryPage) historyView {
	events := make([]historyEntryView, len(p.Entries))
	for i, e := range p.Entries {
		events[i] = historyEntryView{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			ActorID:       hexOrEmpty(e.ActorID),
			ActorName:     e.ActorName,
			UserID:        hexOrEmpty(e.UserID),
			UserName:      e.UserName,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
	}
	return historyView{
		Workgroup: newWorkgroupView(p.Workgroup),
		Events:    events,
		Page:      p.Page,
		Range:     paging.ComputeRange(p.Page.Page, p.Page.PageSize, len(events)),
	}
}
