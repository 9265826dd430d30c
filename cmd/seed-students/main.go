package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/database"
	"github.com/stemsi/classroom-backend/internal/enrollment"
	"github.com/stemsi/classroom-backend/internal/logger"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoEmail    = "guru.demo@sekolah.test"
	demoPassword = "classroom123"
	studentCount = 50
	// enrolledCount students join the demo class; the rest stay available.
	enrolledCount = 20
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "seed-students")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)

	fmt.Println("=== Seeding Demo School ===")

	school := &model.School{Name: "SMA Demo " + time.Now().Format("20060102-150405")}
	if err := profileRepo.CreateSchool(ctx, school); err != nil {
		log.Fatal().Err(err).Msg("Failed to create school")
	}
	fmt.Printf("Created school %q with ID: %d\n", school.Name, school.ID)

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	email := fmt.Sprintf("%d.%s", school.ID, demoEmail)
	teacher := &model.Profile{
		SchoolID:     school.ID,
		FullName:     "Guru Demo",
		Email:        &email,
		Role:         model.RoleTeacher,
		PasswordHash: string(hash),
	}
	if err := profileRepo.Create(ctx, teacher); err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}
	fmt.Printf("Created teacher %s / %s\n", email, demoPassword)

	class := &model.Class{
		SchoolID:     school.ID,
		TeacherID:    &teacher.ID,
		Name:         "XII IPA 1",
		Level:        "XII",
		MaxStudents:  model.DefaultClassCapacity,
		AcademicYear: "2025/2026",
		Semester:     "1",
		Status:       model.ClassActive,
		CreatedBy:    &teacher.ID,
	}
	if err := classRepo.Create(ctx, class); err != nil {
		log.Fatal().Err(err).Msg("Failed to create class")
	}
	fmt.Printf("Created class %q with ID: %d\n", class.Name, class.ID)

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
		"Rafi Ahmad", "Siska Saraswati", "Toni Setiawan", "Umi Kalsum", "Vina Panduwinata",
		"Wahyu Hidayat", "Xena Maharani", "Yudi Pratama", "Zaki Anwar", "Alifia Zahra",
		"Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita", "Fikri Maulana",
		"Gali Rakasiwi", "Hani Hanifah", "Iqbal Ramadhan", "Jasmine Azzahra", "Kevin Sanjaya",
		"Larasati Dewi", "Miko Pambudi", "Nia Ramadhani", "Oscar Lawalata", "Puput Melati",
		"Reza Rahadian", "Sari Nila", "Tigor Siahaan", "Utari Maharani", "Vicky Prasetyo",
	}

	ids := make([]uuid.UUID, 0, studentCount)
	for i := 0; i < studentCount; i++ {
		student := &model.Student{
			SchoolID: school.ID,
			FullName: names[i],
			NIS:      fmt.Sprintf("%d%05d", school.ID, i+1),
			Gender:   model.GenderMale,
			Boarding: model.BoardingDay,
		}
		if i%2 != 0 {
			student.Gender = model.GenderFemale
		}
		if i%3 == 0 {
			student.Boarding = model.BoardingResident
		}

		if err := profileRepo.CreateStudent(ctx, student); err != nil {
			fmt.Printf("Error creating student %s (NIS: %s): %v\n", student.FullName, student.NIS, err)
			continue
		}
		ids = append(ids, student.ID)
		if (i+1)%10 == 0 {
			fmt.Printf("Created %d students...\n", i+1)
		}
	}

	if len(ids) > enrolledCount {
		ids = ids[:enrolledCount]
	}
	result, err := enrollmentRepo.EnrollStudents(ctx, enrollment.Request{
		ClassID:        class.ID,
		SchoolID:       school.ID,
		TeacherID:      teacher.ID,
		StudentIDs:     ids,
		EnrollmentDate: time.Now().UTC(),
		Notes:          "seed",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to enroll students")
	}

	fmt.Printf("\nSeed completed! Enrolled %d/%d students into class %d.\n",
		result.EnrolledCount, len(ids), class.ID)
}
