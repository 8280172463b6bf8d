package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/domain"
)

func km(v float64) *float64 { return &v }

func sampleReport(variant domain.ReportVariant) domain.WeeklyReport {
	report := domain.WeeklyReport{
		Stream:     "weekly",
		Variant:    variant,
		UserID:     "u1",
		Email:      "ada@example.com",
		Name:       "Ada Lovelace",
		WeekNumber: 11,
		Year:       2025,
		Summary: domain.WeeklySummary{
			TotalWorkouts:         2,
			TotalDuration:         135,
			TotalCalories:         2500,
			TotalDistance:         8.2,
			ActiveDays:            2,
			ConsistencyPercentage: 29,
		},
		Activities: []domain.Activity{
			{Kind: domain.ActivityKindRun, DurationMin: 45, DistanceKm: km(8.2), Calories: 420, Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
			{Kind: domain.ActivityKindWorkout, DurationMin: 90, Calories: 2080, Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
		},
		NextWeekGoals: "🎯 Target: 5 workout days",
	}
	if variant == domain.ReportVariantAI {
		report.Insights = &domain.InsightBundle{
			ConsistencyInsight:  "c",
			PerformanceInsight:  "p",
			MotivationalMessage: "m",
			WeeklyScore:         67.1,
		}
	} else {
		report.ConsistencyMessage = "👍 Good start!"
		report.PerformanceInsight = "🏆 impressive"
	}
	return report
}

func TestFormatActivities(t *testing.T) {
	got := FormatActivities(sampleReport(domain.ReportVariantPlain).Activities)
	require.Equal(t, "• Run on Mon, Mar 10: 45m - 8.2km (420 cal)\n• Workout on Wed, Mar 12: 1h 30m (2080 cal)", got)
	require.Equal(t, NoActivities, FormatActivities(nil))
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "2,500", FormatNumber(2500))
	require.Equal(t, "950", FormatNumber(950))
	require.Equal(t, "1,234,567", FormatNumber(1234567))
}

func TestTemplateParamsPerVariant(t *testing.T) {
	plain := TemplateParams(sampleReport(domain.ReportVariantPlain))
	require.Equal(t, "2h 15m", plain["total_duration"])
	require.Equal(t, "2,500", plain["total_calories"])
	require.Equal(t, "👍 Good start!", plain["consistency_message"])
	require.NotContains(t, plain, "weekly_score")
	require.NotContains(t, plain, "email_subject")

	ai := TemplateParams(sampleReport(domain.ReportVariantAI))
	require.Equal(t, 67.1, ai["weekly_score"])
	require.Equal(t, "m", ai["ai_motivational_message"])
	require.Equal(t, "🤖 AI Weekly Summary: 29% Consistency - Week 11", ai["email_subject"])
	require.NotContains(t, ai, "consistency_message")
}

func TestEmailJSClientPostsTemplate(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewEmailJSClient(EmailJSConfig{
		Endpoint:       srv.URL,
		ServiceID:      "svc",
		PublicKey:      "pk",
		WeeklyTemplate: "weekly_summary_template",
		AITemplate:     "ai_weekly_summary_template",
	})
	require.NoError(t, client.Send(context.Background(), sampleReport(domain.ReportVariantAI)))
	require.Equal(t, "svc", got.ServiceID)
	require.Equal(t, "pk", got.UserID)
	require.Equal(t, "ai_weekly_summary_template", got.TemplateID)
	require.Equal(t, "ada@example.com", got.TemplateParams["to_email"])

	require.NoError(t, client.Send(context.Background(), sampleReport(domain.ReportVariantPlain)))
	require.Equal(t, "weekly_summary_template", got.TemplateID)
}

func TestEmailJSClientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The user_id parameter is required", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewEmailJSClient(EmailJSConfig{Endpoint: srv.URL}).Send(context.Background(), sampleReport(domain.ReportVariantPlain))
	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	require.Equal(t, http.StatusBadRequest, delivery.Status)
	require.Contains(t, delivery.Error(), "user_id parameter")
}

func TestEmailJSClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewEmailJSClient(EmailJSConfig{Endpoint: srv.URL}).Send(ctx, sampleReport(domain.ReportVariantPlain))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	return &ses.SendEmailOutput{}, f.err
}

func TestSESSender(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSenderWithClient(fake, "reports@fittrack.test")
	require.NoError(t, sender.Send(context.Background(), sampleReport(domain.ReportVariantAI)))

	require.Equal(t, []string{"ada@example.com"}, fake.input.Destination.ToAddresses)
	require.Equal(t, "reports@fittrack.test", *fake.input.Source)
	require.Equal(t, "🤖 AI Weekly Summary: 29% Consistency - Week 11", *fake.input.Message.Subject.Data)
	require.Contains(t, *fake.input.Message.Body.Text.Data, "Weekly score: 67/100")
	require.Contains(t, *fake.input.Message.Body.Text.Data, "• Run on Mon, Mar 10")

	fake.err = errors.New("throttled")
	require.ErrorContains(t, sender.Send(context.Background(), sampleReport(domain.ReportVariantPlain)), "throttled")
	require.Equal(t, "📊 Weekly Summary - Week 11", *fake.input.Message.Subject.Data)
}

func TestLogSenderRendersConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewLogSender(&buf).Send(context.Background(), sampleReport(domain.ReportVariantAI)))

	out := buf.String()
	require.Contains(t, out, "To: ada@example.com")
	require.Contains(t, out, "• Total Duration: 2h 15m")
	require.Contains(t, out, "• Total Calories: 2,500")
	require.Contains(t, out, "• Total Distance: 8.2 km")
	require.Contains(t, out, "• Workout Days: 2/7")
	require.Contains(t, out, "• Weekly Score: 67/100")
	require.Contains(t, out, "• Run on Mon, Mar 10: 45min - 8.2km (420 cal)")
	require.Contains(t, out, "• Workout on Wed, Mar 12: 90min (2080 cal)")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewLogSender(&buf).Send(ctx, sampleReport(domain.ReportVariantPlain)), context.Canceled)
}
