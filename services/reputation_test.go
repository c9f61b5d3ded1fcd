package services

import (
	"errors"
	"testing"

	"github.com/CMoments/Online-life/models"
)

func TestSubmitReviewAndAverage(t *testing.T) {
	s := newTestServices(t)
	subject := createUser(t, s.DB, "rated", models.RoleStaff)
	first := createUser(t, s.DB, "rater1", models.RoleClient)
	second := createUser(t, s.DB, "rater2", models.RoleClient)

	if _, err := s.Reputation.SubmitReview(first.ID, subject.ID, nil, 90, "quick"); err != nil {
		t.Fatalf("review 1: %v", err)
	}
	if _, err := s.Reputation.SubmitReview(second.ID, subject.ID, nil, 75, "fine"); err != nil {
		t.Fatalf("review 2: %v", err)
	}

	avg, err := s.Reputation.AverageScore(subject.ID)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 82.5 {
		t.Fatalf("average = %v, want 82.5", avg)
	}
}

func TestAverageScoreUnreviewed(t *testing.T) {
	s := newTestServices(t)
	avg, err := s.Reputation.AverageScore(12345)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 0 {
		t.Fatalf("average = %v, want 0", avg)
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	s := newTestServices(t)
	user := createUser(t, s.DB, "self-rater", models.RoleClient)
	other := createUser(t, s.DB, "target", models.RoleStaff)

	var validation *ValidationError
	if _, err := s.Reputation.SubmitReview(user.ID, other.ID, nil, 101, ""); !errors.As(err, &validation) {
		t.Fatalf("score over 100: err = %v, want ValidationError", err)
	}
	if _, err := s.Reputation.SubmitReview(user.ID, other.ID, nil, -1, ""); !errors.As(err, &validation) {
		t.Fatalf("negative score: err = %v, want ValidationError", err)
	}
	if _, err := s.Reputation.SubmitReview(user.ID, user.ID, nil, 50, ""); !errors.As(err, &validation) {
		t.Fatalf("self review: err = %v, want ValidationError", err)
	}
}

func TestSubmitReviewOncePerOrder(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "reviewer", models.RoleClient)
	staff := createUser(t, s.DB, "reviewed", models.RoleStaff)
	order := createDirectOrder(t, s, client.ID, 10)

	if _, err := s.Reputation.SubmitReview(client.ID, staff.ID, &order.ID, 88, "good"); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err := s.Reputation.SubmitReview(client.ID, staff.ID, &order.ID, 40, "changed my mind")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("duplicate review: err = %v, want ConflictError", err)
	}

	// Reviews not tied to an order do not collide.
	if _, err := s.Reputation.SubmitReview(client.ID, staff.ID, nil, 70, ""); err != nil {
		t.Fatalf("orderless review: %v", err)
	}
}

func TestReputationSummary(t *testing.T) {
	s := newTestServices(t)
	subject := createUser(t, s.DB, "summed", models.RoleStaff)
	for i, score := range []float64{60, 70, 80} {
		reviewer := createUser(t, s.DB, "sum-rater"+string(rune('a'+i)), models.RoleClient)
		if _, err := s.Reputation.SubmitReview(reviewer.ID, subject.ID, nil, score, ""); err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
	}

	summary, err := s.Reputation.GetSummary(subject.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalReviews != 3 {
		t.Fatalf("total = %d, want 3", summary.TotalReviews)
	}
	if summary.AverageScore != 70 {
		t.Fatalf("average = %v, want 70", summary.AverageScore)
	}
	if len(summary.Recent) != 3 || summary.Recent[0].Score != 80 {
		t.Fatalf("recent = %+v", summary.Recent)
	}
}
