package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProjectHandler 项目模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
	teamSvc    service.TeamService
	statusSvc  service.StatusService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService, teamSvc service.TeamService, statusSvc service.StatusService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc, teamSvc: teamSvc, statusSvc: statusSvc}
}

// CreateProject 创建项目（管理员）
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.projectSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, project)
}

// GetProject 项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, project)
}

// ListProjects 项目列表
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var req dto.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	projects, total, err := h.projectSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, projects, total, req.GetPage(), req.GetPageSize())
}

// ListByManager 经理负责的项目
// GET /api/v1/managers/:id/projects
func (h *ProjectHandler) ListByManager(c *gin.Context) {
	projects, err := h.projectSvc.ListByManager(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": projects})
}

// ListByDeveloper 开发者参与的项目
// GET /api/v1/developers/:id/projects
func (h *ProjectHandler) ListByDeveloper(c *gin.Context) {
	projects, err := h.teamSvc.GetDeveloperProjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": projects})
}

// UpdateProject 更新项目（管理员）
// PUT /api/v1/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.projectSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, project)
}

// DeleteProject 级联删除项目（管理员）
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetDevelopers 项目团队中的开发者
// GET /api/v1/projects/:id/developers
func (h *ProjectHandler) GetDevelopers(c *gin.Context) {
	users, err := h.teamSvc.GetAssignedDevelopers(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// GetModulesAndStatuses 项目模块与全部状态，供任务表单使用
// GET /api/v1/projects/:id/modules-statuses
func (h *ProjectHandler) GetModulesAndStatuses(c *gin.Context) {
	result, err := h.statusSvc.GetModulesAndStatuses(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ExportTasks 导出项目任务
// GET /api/v1/projects/:id/export
func (h *ProjectHandler) ExportTasks(c *gin.Context) {
	buf, filename, err := h.projectSvc.ExportTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Calendar 项目排期日历订阅
// GET /api/v1/projects/:id/calendar.ics
func (h *ProjectHandler) Calendar(c *gin.Context) {
	body, filename, err := h.projectSvc.Calendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// queryLimit 解析 ?limit=，非法值返回 0 交由 service 取默认
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}
