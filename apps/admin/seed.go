package main

import (
	"context"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
	appfs "github.com/goosen-x/lms/fs"
)

const defaultCatalog = "seed/catalog.toml"

type (
	seedCatalog struct {
		Users   []seedUser   `toml:"users"`
		Courses []seedCourse `toml:"courses"`
	}

	seedUser struct {
		Name     string `toml:"name"`
		Email    string `toml:"email"`
		Password string `toml:"password"`
		Role     string `toml:"role"`
	}

	seedCourse struct {
		Title       string       `toml:"title"`
		Slug        string       `toml:"slug"`
		Description string       `toml:"description"`
		Category    string       `toml:"category"`
		Status      string       `toml:"status"`
		Teacher     string       `toml:"teacher"` // email
		Students    []string     `toml:"students"`
		Lessons     []seedLesson `toml:"lessons"`
	}

	seedLesson struct {
		Title       string `toml:"title"`
		Slug        string `toml:"slug"`
		Description string `toml:"description"`
		Content     string `toml:"content"`
		VideoID     string `toml:"video_id"`
	}
)

// loadCatalog decodes the catalog at path, or the embedded one when path is empty.
func loadCatalog(path string) (seedCatalog, error) {
	var (
		catalog seedCatalog
		data    []byte
		err     error
	)
	if path == "" {
		data, err = fs.ReadFile(appfs.FS, defaultCatalog)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return seedCatalog{}, errors.Wrap(err, "reading catalog")
	}

	md, err := toml.Decode(string(data), &catalog)
	if err != nil {
		return seedCatalog{}, errors.Wrap(err, "decoding catalog")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return seedCatalog{}, errors.Errorf("unknown catalog key %q", undecoded[0].String())
	}
	return catalog, nil
}

// seed loads the demo users & courses of a catalog.
// Users (by email) and courses (by slug) that already exist are left untouched; enrollments are idempotent.
func (cli *commandLine) seed(path string) error {
	catalog, err := loadCatalog(path)
	if err != nil {
		return err
	}
	ctx := context.Background()

	users := make(map[string]user.User, len(catalog.Users))
	for _, su := range catalog.Users {
		usr, err := cli.seedUser(ctx, su)
		if err != nil {
			return errors.Wrapf(err, "seeding user %q", su.Email)
		}
		users[usr.Email] = usr
	}

	for _, sc := range catalog.Courses {
		if err = cli.seedCourse(ctx, sc, users); err != nil {
			return errors.Wrapf(err, "seeding course %q", sc.Slug)
		}
	}
	cli.printf("seeded %d users and %d courses\n", len(catalog.Users), len(catalog.Courses))
	return nil
}

func (cli *commandLine) seedUser(ctx context.Context, su seedUser) (user.User, error) {
	usr, err := cli.usrSvc.GetByEmail(ctx, su.Email)
	if err == nil {
		return usr, nil
	}
	if errors.Cause(err) != user.ErrNotFound {
		return user.User{}, err
	}

	role, err := access.ParseRole(su.Role)
	if err != nil {
		return user.User{}, errors.Wrapf(err, "parsing role %q", su.Role)
	}
	return cli.usrSvc.Create(ctx, user.NewUser{
		Name:     core.CleanString(su.Name),
		Email:    core.CleanString(su.Email, true /* lower */),
		Role:     role,
		Password: su.Password,
	})
}

// lookupUser returns a user of the catalog, or an existing one.
func (cli *commandLine) lookupUser(ctx context.Context, email string, users map[string]user.User) (user.User, error) {
	email = core.CleanString(email, true /* lower */)
	if usr, ok := users[email]; ok {
		return usr, nil
	}
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return user.User{}, errors.Wrapf(err, "getting user %q", email)
	}
	users[email] = usr
	return usr, nil
}

func (cli *commandLine) seedCourse(ctx context.Context, sc seedCourse, users map[string]user.User) error {
	crs, err := cli.crsSvc.GetBySlug(ctx, sc.Slug)
	switch errors.Cause(err) {
	case nil:
	case course.ErrNotFound:
		teacher, err := cli.lookupUser(ctx, sc.Teacher, users)
		if err != nil {
			return err
		}
		if teacher.Role != access.RoleTeacher && teacher.Role != access.RoleAdmin {
			return errors.Errorf("%q cannot teach: role %s", teacher.Email, teacher.Role)
		}

		lessons := make([]course.Lesson, len(sc.Lessons))
		for i, sl := range sc.Lessons {
			lessons[i] = course.Lesson{
				Title:       sl.Title,
				Slug:        sl.Slug,
				Description: sl.Description,
				Content:     sl.Content,
				VideoID:     sl.VideoID,
			}
		}
		crs, err = cli.crsSvc.Create(ctx, course.Course{
			Title:       sc.Title,
			Slug:        sc.Slug,
			Description: sc.Description,
			Category:    sc.Category,
			Status:      course.Status(sc.Status),
			TeacherID:   teacher.ID,
		}, lessons...)
		if err != nil {
			return err
		}
	default:
		return errors.Wrap(err, "getting course")
	}

	for _, email := range sc.Students {
		student, err := cli.lookupUser(ctx, email, users)
		if err != nil {
			return err
		}
		if !student.IsStudent() {
			return errors.Errorf("%q cannot enroll: role %s", student.Email, student.Role)
		}
		_, err = cli.crsRepo.CreateEnrollment(ctx, course.Enrollment{
			CourseID:   crs.ID,
			StudentID:  student.ID,
			EnrolledAt: course.NowFunc().UTC(),
		})
		if err != nil {
			return errors.Wrapf(err, "enrolling %q", student.Email)
		}
	}
	return nil
}
